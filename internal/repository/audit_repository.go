package repository

import (
	"context"

	"hr-assistant-go/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 接口定义了交互审计记录的追加操作。
type AuditRepository interface {
	Create(ctx context.Context, record *model.AuditRecord) error
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建一个新的 AuditRepository 实例。
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Create 追加一条审计记录，只插入不更新。
func (r *auditRepository) Create(ctx context.Context, record *model.AuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
