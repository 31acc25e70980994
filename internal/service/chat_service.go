package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"hr-assistant-go/internal/formatter"
	"hr-assistant-go/internal/intent"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/internal/rbac"
	"hr-assistant-go/pkg/log"
)

const (
	// 低于该置信度直接走闲聊回复，不查询数据。
	unknownThreshold = 0.3
	// 空结果且置信度低于该值时升级为工单。
	escalateThreshold = 0.5
	// 闲聊回复的置信度下限。
	conversationalFloor = 0.5
	// 升级回复的置信度上限。
	escalatedConfidence = 0.3
)

// AssistantService 定义了助手对话管道的接口。
type AssistantService interface {
	// ProcessMessage 处理一条消息。所有失败都在内部吸收，总是返回可展示的回复。
	ProcessMessage(ctx context.Context, msg model.IncomingMessage) model.AssistantResponse
}

type assistantService struct {
	classifier intent.Classifier
	contexts   ContextService
	policy     *rbac.Policy
	engine     query.Engine
	formatter  formatter.Formatter
	escalation EscalationService
	audit      AuditService
}

// NewAssistantService 创建一个新的 AssistantService 实例。
func NewAssistantService(
	classifier intent.Classifier,
	contexts ContextService,
	policy *rbac.Policy,
	engine query.Engine,
	fmtr formatter.Formatter,
	escalation EscalationService,
	audit AuditService,
) AssistantService {
	return &assistantService{
		classifier: classifier,
		contexts:   contexts,
		policy:     policy,
		engine:     engine,
		formatter:  fmtr,
		escalation: escalation,
		audit:      audit,
	}
}

// ProcessMessage 按状态机处理消息：分类、补全、澄清或查询、升级或格式化、保存上下文，最后审计。
func (s *assistantService) ProcessMessage(ctx context.Context, msg model.IncomingMessage) (resp model.AssistantResponse) {
	rec := &model.AuditRecord{
		UserID:   msg.User.ID,
		UserName: msg.User.Name,
		Role:     msg.User.Role,
		Message:  msg.Text,
	}

	// 审计在所有分支之后恰好执行一次，包括 panic 恢复后的分支。
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[AssistantService] 处理消息 panic, user: %s, panic: %v\n%s", msg.User.ID, r, debug.Stack())
			resp = s.fail(ctx, msg, rec, fmt.Errorf("panic: %v", r))
		}
		resp.Confidence = model.ClampConfidence(resp.Confidence)
		completeAudit(rec, resp)
		s.audit.Record(ctx, rec)
	}()

	unlock := s.contexts.Lock(msg.User.ID)
	defer unlock()

	return s.process(ctx, msg, rec)
}

func (s *assistantService) process(ctx context.Context, msg model.IncomingMessage, rec *model.AuditRecord) model.AssistantResponse {
	// Classifying
	res := s.classifier.Classify(msg.Text)
	res = s.contexts.Resolve(ctx, msg.User.ID, res)
	res.Confidence = model.ClampConfidence(res.Confidence)
	rec.Intent = ptr(string(res.Intent))

	in := formatter.Input{
		Intent:     res.Intent,
		Entities:   res.Entities,
		Message:    msg.Text,
		User:       msg.User,
		Confidence: res.Confidence,
	}

	// ShortCircuitUnknown
	if res.Intent == model.IntentUnknown || res.Confidence < unknownThreshold {
		out := s.formatter.Conversational(ctx, in)
		return model.AssistantResponse{
			Answer:     out.Text,
			Confidence: max(out.Confidence, conversationalFloor),
		}
	}

	// AwaitingClarification
	if s.needsClarification(res, msg.Text) {
		s.contexts.Save(ctx, msg.User.ID, res.Intent, res.Entities, msg.Text, nil)
		out := s.formatter.Clarification(in)
		return model.AssistantResponse{Answer: out.Text, Confidence: out.Confidence}
	}

	// Querying
	result := s.engine.Run(ctx, query.Request{
		Scope:    s.policy.ScopeFor(msg.User),
		Intent:   res.Intent,
		Entities: res.Entities,
		Text:     msg.Text,
	})
	rec.QueriedRowCount = ptr(len(result.Rows))

	// Escalating
	if result.Status == query.StatusFailed || (result.Status == query.StatusEmpty && res.Confidence < escalateThreshold) {
		return s.escalate(ctx, msg, res, result, rec)
	}

	// ContextSaved：先保存，格式化失败时追问仍可复用实体。
	s.contexts.Save(ctx, msg.User.ID, res.Intent, res.Entities, msg.Text, result.Rows)

	// Formatting
	in.Result = result
	out := s.formatter.Format(ctx, in)
	return model.AssistantResponse{
		Answer:     out.Text,
		Confidence: max(out.Confidence, res.Confidence),
		Actions:    out.Actions,
	}
}

// needsClarification 仅对缺少任何时间参数的打卡查询返回 true。
func (s *assistantService) needsClarification(res model.IntentResult, text string) bool {
	if res.Intent != model.IntentClockRecords || res.Entities.MissingClockIns {
		return false
	}
	return !res.Entities.HasTemporal() && !s.classifier.HasTemporalPhrase(text)
}

func (s *assistantService) escalate(ctx context.Context, msg model.IncomingMessage, res model.IntentResult, result query.Result, rec *model.AuditRecord) model.AssistantResponse {
	priority := model.PriorityLow
	if result.Status == query.StatusFailed {
		priority = model.PriorityMedium
		rec.Error = ptr(result.Reason)
	}
	log.Warnf("[AssistantService] 升级为工单, user: %s, intent: %s, status: %s", msg.User.ID, res.Intent, result.Status)

	ticket, err := s.escalation.CreateTicket(ctx, TicketRequest{
		User:     msg.User,
		Message:  msg.Text,
		Intent:   res.Intent,
		Context:  ticketContext(res, result),
		Priority: priority,
	})
	if err != nil {
		rec.Error = ptr(joinErrors(rec.Error, err.Error()))
	}
	return model.AssistantResponse{
		Answer:     formatter.EscalationText(ticket.ID),
		Confidence: min(res.Confidence, escalatedConfidence),
		Escalated:  true,
		TicketID:   ticket.ID,
	}
}

// fail 是未预期错误的终态：高优先级工单加通用致歉。
func (s *assistantService) fail(ctx context.Context, msg model.IncomingMessage, rec *model.AuditRecord, cause error) model.AssistantResponse {
	rec.Error = ptr(cause.Error())
	var intentName model.Intent
	if rec.Intent != nil {
		intentName = model.Intent(*rec.Intent)
	}
	ticket, err := s.escalation.CreateTicket(ctx, TicketRequest{
		User:     msg.User,
		Message:  msg.Text,
		Intent:   intentName,
		Context:  fmt.Sprintf(`{"error":%q}`, cause.Error()),
		Priority: model.PriorityHigh,
	})
	if err != nil {
		rec.Error = ptr(joinErrors(rec.Error, err.Error()))
	}
	return model.AssistantResponse{
		Answer:     formatter.FailureText(ticket.ID),
		Confidence: 0,
		Escalated:  true,
		TicketID:   ticket.ID,
	}
}

func ticketContext(res model.IntentResult, result query.Result) string {
	blob := map[string]interface{}{
		"intent":     res.Intent,
		"confidence": res.Confidence,
		"entities":   res.Entities,
		"status":     result.Status.String(),
		"kind":       result.Kind,
	}
	if result.Reason != "" {
		blob["reason"] = result.Reason
	}
	b, err := json.Marshal(blob)
	if err != nil {
		return ""
	}
	return string(b)
}

func completeAudit(rec *model.AuditRecord, resp model.AssistantResponse) {
	rec.Confidence = ptr(resp.Confidence)
	rec.ResponseText = ptr(resp.Answer)
	rec.Escalated = resp.Escalated
	if resp.TicketID != "" {
		rec.TicketID = ptr(resp.TicketID)
	}
}

func joinErrors(prev *string, next string) string {
	if prev == nil || strings.TrimSpace(*prev) == "" {
		return next
	}
	return *prev + "; " + next
}

func ptr[T any](v T) *T {
	return &v
}
