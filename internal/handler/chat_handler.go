package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"hr-assistant-go/internal/middleware"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 聊天连接，每个文本帧是一条消息。
type ChatHandler struct {
	assistant  service.AssistantService
	jwtManager *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(assistant service.AssistantService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{assistant: assistant, jwtManager: jwtManager}
}

// wsFrame 是客户端可以发送的 JSON 帧；纯文本帧也按消息处理。
type wsFrame struct {
	Type    string `json:"type"`
	Message string `json:"mensaje"`
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Sesión no válida o caducada", "data": nil})
		return
	}
	user := middleware.UserFromClaims(claims)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("[ChatHandler] WebSocket 连接已建立，用户: %s", user.ID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[ChatHandler] 从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		text, ping := parseFrame(raw)
		if ping {
			writeJSON(conn, gin.H{"type": "pong", "timestamp": time.Now().UnixMilli()})
			continue
		}
		if text == "" || len([]rune(text)) > maxMessageRunes {
			writeJSON(conn, gin.H{"type": "error", "message": "Mensaje vacío o demasiado largo"})
			continue
		}

		resp := h.assistant.ProcessMessage(c.Request.Context(), model.IncomingMessage{Text: text, User: user})
		if err := writeJSON(conn, gin.H{"type": "response", "data": resp}); err != nil {
			log.Warnf("[ChatHandler] 写入 WebSocket 失败: %v", err)
			break
		}
	}
}

func parseFrame(raw []byte) (text string, ping bool) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var f wsFrame
		if err := json.Unmarshal([]byte(trimmed), &f); err == nil {
			if f.Type == "ping" {
				return "", true
			}
			return strings.TrimSpace(f.Message), false
		}
	}
	return trimmed, false
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
