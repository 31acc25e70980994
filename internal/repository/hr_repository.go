package repository

import (
	"context"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"

	"gorm.io/gorm"
)

// HRDataRepository 执行查询引擎构造的参数化语句。它实现了 query.Source。
type HRDataRepository interface {
	Rows(ctx context.Context, stmt query.Stmt) ([]model.Row, error)
}

type hrDataRepository struct {
	db *gorm.DB
}

// NewHRDataRepository 创建一个新的 HRDataRepository 实例。
func NewHRDataRepository(db *gorm.DB) HRDataRepository {
	return &hrDataRepository{db: db}
}

// Rows 以只读方式执行语句，值全部通过占位符绑定。
func (r *hrDataRepository) Rows(ctx context.Context, stmt query.Stmt) ([]model.Row, error) {
	var raw []map[string]interface{}
	if err := r.db.WithContext(ctx).Raw(stmt.SQL, stmt.Args...).Scan(&raw).Error; err != nil {
		return nil, err
	}
	rows := make([]model.Row, len(raw))
	for i, m := range raw {
		rows[i] = model.Row(m)
	}
	return rows, nil
}
