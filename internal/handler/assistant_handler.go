// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strings"

	"hr-assistant-go/internal/middleware"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/service"

	"github.com/gin-gonic/gin"
)

// 单条消息的最大长度（字符）。
const maxMessageRunes = 2000

// AssistantHandler 处理助手消息的 REST 请求。
type AssistantHandler struct {
	assistant service.AssistantService
}

// NewAssistantHandler 创建一个新的 AssistantHandler。
func NewAssistantHandler(assistant service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// MessageRequest 是 POST /assistant/messages 的请求体。
type MessageRequest struct {
	Message string `json:"mensaje" binding:"required"`
}

// PostMessage 处理一条消息并返回助手回复。
func (h *AssistantHandler) PostMessage(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Sesión no válida", "data": nil})
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "El mensaje no puede estar vacío", "data": nil})
		return
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "El mensaje es demasiado largo", "data": nil})
		return
	}

	resp := h.assistant.ProcessMessage(c.Request.Context(), model.IncomingMessage{
		Text: strings.TrimSpace(req.Message),
		User: user,
	})
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}
