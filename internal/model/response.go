package model

// Action 是前端可渲染为按钮或链接的结构化操作。
type Action struct {
	Type    string                 `json:"tipo"`
	Label   string                 `json:"label"`
	Payload map[string]interface{} `json:"payload"`
}

// AssistantResponse 是 processMessage 的对外返回结构。
type AssistantResponse struct {
	Answer     string   `json:"respuesta"`
	Confidence float64  `json:"confianza"`
	Escalated  bool     `json:"escalado,omitempty"`
	TicketID   string   `json:"ticket_id,omitempty"`
	Actions    []Action `json:"acciones,omitempty"`
}
