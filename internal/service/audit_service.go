package service

import (
	"context"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/pkg/log"
)

const auditTimeout = 5 * time.Second

// AuditService 追加交互审计记录。写入失败只记录日志，不影响回复。
type AuditService interface {
	Record(ctx context.Context, record *model.AuditRecord)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService 创建一个新的 AuditService。
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, record *model.AuditRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[AuditService] 写入审计记录 panic, user: %s, panic: %v", record.UserID, r)
		}
	}()

	// 调用方的 ctx 可能已被取消，审计使用独立的截止时间。
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, record); err != nil {
		log.Errorf("[AuditService] 写入审计记录失败, user: %s, err: %v", record.UserID, err)
	}
}
