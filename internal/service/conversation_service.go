// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/pkg/log"
)

// 追问时沿用上一轮意图的置信度。
const inheritedConfidence = 0.6

// 上下文中最多保留的结果行数。
const maxContextRows = 50

// ContextService 定义了对话上下文的业务接口，用于解析追问。
type ContextService interface {
	Save(ctx context.Context, userID string, intent model.Intent, entities model.Entities, message string, rows []model.Row)
	Get(ctx context.Context, userID string) (*model.ConversationContext, bool)
	IsFollowUp(ctx context.Context, userID string, intent model.Intent, entities model.Entities) bool
	Enrich(ctx context.Context, userID string, entities model.Entities, intent model.Intent) model.Entities
	// Resolve 在分类结果上应用追问补全与意图继承。
	Resolve(ctx context.Context, userID string, res model.IntentResult) model.IntentResult
	// Lock 串行化同一用户的读取-补全-保存，返回解锁函数。
	Lock(userID string) func()
}

type contextService struct {
	store repository.ContextStore
	locks *keyedMutex
}

// NewContextService 创建一个新的 ContextService。
func NewContextService(store repository.ContextStore) ContextService {
	return &contextService{store: store, locks: newKeyedMutex()}
}

// Save 覆盖用户的上下文记录，存储层负责刷新时间戳。
func (s *contextService) Save(ctx context.Context, userID string, intent model.Intent, entities model.Entities, message string, rows []model.Row) {
	if userID == "" {
		return
	}
	if len(rows) > maxContextRows {
		rows = rows[:maxContextRows]
	}
	record := &model.ConversationContext{
		UserID:       userID,
		LastIntent:   intent,
		LastEntities: entities,
		LastMessage:  message,
		LastResult:   rows,
	}
	if err := s.store.Save(ctx, record); err != nil {
		log.Warnf("[ContextService] 保存上下文失败, user: %s, err: %v", userID, err)
	}
}

// Get 返回有效期内的上下文。存储异常按不存在处理。
func (s *contextService) Get(ctx context.Context, userID string) (*model.ConversationContext, bool) {
	if userID == "" {
		return nil, false
	}
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrContextNotFound) {
			log.Warnf("[ContextService] 读取上下文失败, user: %s, err: %v", userID, err)
		}
		return nil, false
	}
	return record, true
}

// IsFollowUp 判断是否为同一意图下未带参数的追问。
func (s *contextService) IsFollowUp(ctx context.Context, userID string, intent model.Intent, entities model.Entities) bool {
	_, ok := s.followUp(ctx, userID, intent, entities)
	return ok
}

func (s *contextService) followUp(ctx context.Context, userID string, intent model.Intent, entities model.Entities) (*model.ConversationContext, bool) {
	if intent == model.IntentUnknown || !entities.IsEmpty() {
		return nil, false
	}
	record, ok := s.Get(ctx, userID)
	if !ok || record.LastIntent != intent {
		return nil, false
	}
	return record, true
}

// Enrich 对追问返回上一轮的实体；当前实体非空或意图不同时原样返回。
func (s *contextService) Enrich(ctx context.Context, userID string, entities model.Entities, intent model.Intent) model.Entities {
	record, ok := s.followUp(ctx, userID, intent, entities)
	if !ok {
		return entities
	}
	enriched := record.LastEntities
	// 查询模式标记属于当前消息。
	enriched.MissingClockIns = entities.MissingClockIns
	log.Debugf("[ContextService] 追问补全实体, user: %s, intent: %s", userID, intent)
	return enriched
}

// Resolve 处理两类追问：同意图无参数的追问补全实体；
// 无法识别意图但带参数的省略句沿用上一轮意图，当前参数优先。
func (s *contextService) Resolve(ctx context.Context, userID string, res model.IntentResult) model.IntentResult {
	if res.Intent != model.IntentUnknown {
		res.Entities = s.Enrich(ctx, userID, res.Entities, res.Intent)
		return res
	}
	if res.Entities.IsEmpty() {
		return res
	}
	record, ok := s.Get(ctx, userID)
	if !ok || record.LastIntent == "" || record.LastIntent == model.IntentUnknown {
		return res
	}
	log.Debugf("[ContextService] 沿用上一轮意图 %s, user: %s", record.LastIntent, userID)
	res.Intent = record.LastIntent
	res.Entities = mergeEntities(record.LastEntities, res.Entities)
	res.Confidence = model.ClampConfidence(max(res.Confidence, inheritedConfidence))
	return res
}

func (s *contextService) Lock(userID string) func() {
	return s.locks.Lock(userID)
}

// mergeEntities 用 current 的非空字段覆盖 stored。
func mergeEntities(stored, current model.Entities) model.Entities {
	out := stored
	if current.Code != "" {
		out.Code = current.Code
	}
	if current.Name != "" {
		out.Name = current.Name
	}
	// 日期与月份互斥，新给出的时间参数整体替换旧的。
	if current.Date != "" || current.Month != nil {
		out.Date = current.Date
		out.Month = current.Month
	}
	if current.LeaveType != "" {
		out.LeaveType = current.LeaveType
	}
	if current.ListFilter != model.FilterNone {
		out.ListFilter = current.ListFilter
	}
	if current.DocType != "" {
		out.DocType = current.DocType
	}
	out.MissingClockIns = current.MissingClockIns
	return out
}
