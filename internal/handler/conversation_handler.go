package handler

import (
	"net/http"
	"time"

	"hr-assistant-go/internal/middleware"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理对话上下文的查看请求。
type ConversationHandler struct {
	contexts service.ContextService
	ttl      time.Duration
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(contexts service.ContextService, ttl time.Duration) *ConversationHandler {
	return &ConversationHandler{contexts: contexts, ttl: ttl}
}

// ContextDTO 是对话上下文的对外表示，不包含结果行本身。
type ContextDTO struct {
	UserID      string          `json:"userId"`
	LastIntent  model.Intent    `json:"lastIntent"`
	Entities    model.Entities  `json:"lastEntities"`
	LastMessage string          `json:"lastMessage"`
	RowCount    int             `json:"rowCount"`
	UpdatedAt   model.LocalTime `json:"updatedAt"`
	ExpiresAt   model.LocalTime `json:"expiresAt"`
}

// GetContext 返回调用方自己的上下文。
func (h *ConversationHandler) GetContext(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Sesión no válida", "data": nil})
		return
	}
	h.respond(c, user.ID)
}

// GetUserContext 返回指定员工的上下文，仅限全量访问角色。
func (h *ConversationHandler) GetUserContext(c *gin.Context) {
	h.respond(c, c.Param("userId"))
}

func (h *ConversationHandler) respond(c *gin.Context, userID string) {
	record, ok := h.contexts.Get(c.Request.Context(), userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "No hay conversación activa", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": ContextDTO{
			UserID:      record.UserID,
			LastIntent:  record.LastIntent,
			Entities:    record.LastEntities,
			LastMessage: record.LastMessage,
			RowCount:    len(record.LastResult),
			UpdatedAt:   model.LocalTime(record.Timestamp),
			ExpiresAt:   model.LocalTime(record.Timestamp.Add(h.ttl)),
		},
	})
}
