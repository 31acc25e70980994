package repository

import (
	"context"

	"hr-assistant-go/internal/model"

	"gorm.io/gorm"
)

// TicketRepository 接口定义了支持工单的持久化操作。
type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
}

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建一个新的 TicketRepository 实例。
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// Create 插入一条新工单。
func (r *ticketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}
