package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/tasks"

	"github.com/google/uuid"
)

const (
	notifyTimeout      = 10 * time.Second
	notifyMessageChars = 200
)

// Notifier 把工单通知投递到支持渠道（Telegram、Kafka 等）。
type Notifier interface {
	Notify(ctx context.Context, n tasks.SupportNotification) error
}

// TicketRequest 是创建工单所需的信息。
type TicketRequest struct {
	User     model.User
	Message  string
	Intent   model.Intent
	Context  string
	Priority model.TicketPriority
}

// EscalationService 定义了升级为人工支持工单的接口。
type EscalationService interface {
	// CreateTicket 总是返回带 id 的工单；err 仅表示持久化失败。
	CreateTicket(ctx context.Context, req TicketRequest) (*model.Ticket, error)
	// Wait 等待所有进行中的通知结束，用于优雅退出。
	Wait()
}

type escalationService struct {
	repo     repository.TicketRepository
	notifier Notifier
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewEscalationService 创建一个新的 EscalationService。notifier 可为 nil。
func NewEscalationService(repo repository.TicketRepository, notifier Notifier) EscalationService {
	return &escalationService{repo: repo, notifier: notifier, now: time.Now}
}

func (s *escalationService) CreateTicket(ctx context.Context, req TicketRequest) (*model.Ticket, error) {
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	ticket := &model.Ticket{
		ID:              "TKT-" + uuid.NewString(),
		UserID:          req.User.ID,
		UserName:        req.User.Name,
		Role:            req.User.Role,
		OriginalMessage: req.Message,
		Intent:          string(req.Intent),
		Context:         req.Context,
		Priority:        priority,
		Status:          model.TicketStatusOpen,
		CreatedAt:       s.now(),
	}

	var persistErr error
	if err := s.repo.Create(ctx, ticket); err != nil {
		log.Errorf("[EscalationService] 保存工单失败, ticket: %s, err: %v", ticket.ID, err)
		persistErr = fmt.Errorf("failed to persist ticket %s: %w", ticket.ID, err)
	} else {
		log.Infow("[EscalationService] 工单已创建", "ticket", ticket.ID, "user", ticket.UserID, "priority", ticket.Priority)
	}

	s.notify(ticket)
	return ticket, persistErr
}

// notify 在后台投递通知，失败只记录日志。
func (s *escalationService) notify(ticket *model.Ticket) {
	if s.notifier == nil {
		return
	}
	n := tasks.SupportNotification{
		TicketID:  ticket.ID,
		UserID:    ticket.UserID,
		UserName:  ticket.UserName,
		Role:      ticket.Role,
		Message:   truncateRunes(ticket.OriginalMessage, notifyMessageChars),
		Intent:    ticket.Intent,
		Priority:  string(ticket.Priority),
		CreatedAt: ticket.CreatedAt,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("[EscalationService] 通知发送 panic, ticket: %s, panic: %v", n.TicketID, r)
			}
		}()

		// 与请求生命周期解耦，请求结束后通知仍可完成。
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			log.Warnf("[EscalationService] 通知发送失败, ticket: %s, err: %v", n.TicketID, err)
			return
		}
		log.Infof("[EscalationService] 通知已发送, ticket: %s", n.TicketID)
	}()
}

func (s *escalationService) Wait() {
	s.wg.Wait()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
