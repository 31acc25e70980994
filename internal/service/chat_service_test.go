package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/formatter"
	"hr-assistant-go/internal/intent"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc      AssistantService
	engine   *fakeEngine
	tickets  *fakeTicketRepo
	audits   *fakeAuditRepo
	notifier *fakeNotifier
	esc      EscalationService
	clock    *manualClock
}

func newHarness(t *testing.T, cls intent.Classifier) *harness {
	t.Helper()
	h := &harness{
		engine:   &fakeEngine{result: okRows(2)},
		tickets:  &fakeTicketRepo{},
		audits:   &fakeAuditRepo{},
		notifier: &fakeNotifier{},
		clock:    &manualClock{t: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)},
	}
	if cls == nil {
		var err error
		cls, err = intent.NewClassifier(nil, intent.WithClock(h.clock.Now))
		require.NoError(t, err)
	}
	policy, err := rbac.NewPolicy(config.DefaultFullAccessRoles)
	require.NoError(t, err)

	h.esc = NewEscalationService(h.tickets, h.notifier)
	h.svc = NewAssistantService(
		cls,
		NewContextService(newMemoryStore(h.clock)),
		policy,
		h.engine,
		formatter.NewFormatter(nil, nil, formatter.Options{}),
		h.esc,
		NewAuditService(h.audits),
	)
	return h
}

var ana = model.User{ID: "E1", Name: "Ana Ruiz", Role: "auxiliar"}

func (h *harness) ask(text string) model.AssistantResponse {
	resp := h.svc.ProcessMessage(context.Background(), model.IncomingMessage{Text: text, User: ana})
	h.esc.Wait()
	return resp
}

func TestProcessMessage_UnknownShortCircuits(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.ask("hola, buenos días")

	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, 0.5, resp.Confidence)
	assert.False(t, resp.Escalated)
	assert.Zero(t, h.engine.callCount())
	assert.Empty(t, h.tickets.all())

	audits := h.audits.all()
	require.Len(t, audits, 1)
	require.NotNil(t, audits[0].Intent)
	assert.Equal(t, "unknown", *audits[0].Intent)
	assert.Nil(t, audits[0].QueriedRowCount)
}

func TestProcessMessage_ClarificationThenEllipticalDate(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.ask("Quiero ver mis fichajes")
	assert.Contains(t, resp.Answer, "Fichajes del 14/03/2025")
	assert.Zero(t, h.engine.callCount())

	resp = h.ask("el 14/03/2025")
	require.Equal(t, 1, h.engine.callCount())
	req := h.engine.calls[0]
	assert.Equal(t, model.IntentClockRecords, req.Intent)
	assert.Equal(t, "2025-03-14", req.Entities.Date)
	assert.Equal(t, rbac.OwnDataOnly, req.Scope.Level)
	assert.Equal(t, "E1", req.Scope.UserID)
	assert.True(t, strings.HasPrefix(resp.Answer, "He encontrado 2 fichajes:"))
	assert.Equal(t, 0.6, resp.Confidence)
	assert.Len(t, h.audits.all(), 2)
}

func TestProcessMessage_TemporalPhraseSkipsClarification(t *testing.T) {
	h := newHarness(t, nil)
	h.ask("mis fichajes de hoy")
	assert.Equal(t, 1, h.engine.callCount())

	h.ask("¿Quién no ha fichado?")
	require.Equal(t, 2, h.engine.callCount())
	assert.True(t, h.engine.calls[1].Entities.MissingClockIns)
}

func TestProcessMessage_FollowUpReusesEntities(t *testing.T) {
	h := newHarness(t, nil)
	h.ask("Mis vacaciones de marzo")
	h.ask("¿y el saldo?")

	require.Equal(t, 2, h.engine.callCount())
	first, second := h.engine.calls[0], h.engine.calls[1]
	assert.Equal(t, model.IntentLeave, second.Intent)
	assert.Equal(t, first.Entities, second.Entities)
	require.NotNil(t, second.Entities.Month)
	assert.Equal(t, time.March, second.Entities.Month.Month)

	h.clock.Advance(16 * time.Minute)
	h.ask("¿y el saldo?")
	require.Equal(t, 3, h.engine.callCount())
	assert.True(t, h.engine.calls[2].Entities.IsEmpty())
}

func TestProcessMessage_QueryFailureEscalates(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.err = errors.New("telegram 502")
	h.engine.result = query.Result{Status: query.StatusFailed, Rows: []model.Row{}, Reason: "payroll: dial tcp 10.0.0.1:3306", Kind: "payroll"}

	resp := h.ask("mis nóminas")
	assert.True(t, resp.Escalated)
	assert.NotEmpty(t, resp.TicketID)
	assert.Contains(t, resp.Answer, resp.TicketID)
	assert.NotContains(t, resp.Answer, "dial tcp")
	assert.LessOrEqual(t, resp.Confidence, 0.3)

	tickets := h.tickets.all()
	require.Len(t, tickets, 1)
	assert.Equal(t, model.PriorityMedium, tickets[0].Priority)
	assert.Contains(t, tickets[0].Context, "dial tcp")

	audits := h.audits.all()
	require.Len(t, audits, 1)
	assert.True(t, audits[0].Escalated)
	require.NotNil(t, audits[0].TicketID)
	assert.Equal(t, resp.TicketID, *audits[0].TicketID)
	require.NotNil(t, audits[0].Error)
	assert.Contains(t, *audits[0].Error, "dial tcp")
}

func TestProcessMessage_EmptyResult(t *testing.T) {
	low := newHarness(t, stubClassifier{result: model.IntentResult{Intent: model.IntentPayroll, Confidence: 0.4}})
	low.engine.result = query.Result{Status: query.StatusEmpty, Rows: []model.Row{}, Kind: "payroll"}
	resp := low.ask("nominas?")
	assert.True(t, resp.Escalated)
	require.Len(t, low.tickets.all(), 1)
	assert.Equal(t, model.PriorityLow, low.tickets.all()[0].Priority)

	high := newHarness(t, nil)
	high.engine.result = query.Result{Status: query.StatusEmpty, Rows: []model.Row{}, Kind: "payroll"}
	resp = high.ask("mis nóminas")
	assert.False(t, resp.Escalated)
	assert.Equal(t, "No he encontrado nóminas para ese periodo.", resp.Answer)
	assert.Equal(t, 0.6, resp.Confidence)
	assert.Empty(t, high.tickets.all())
}

func TestProcessMessage_PanicBecomesHighPriorityTicket(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.panic = true

	resp := h.ask("mis nóminas")
	assert.True(t, resp.Escalated)
	assert.NotEmpty(t, resp.TicketID)
	assert.Equal(t, formatter.FailureText(resp.TicketID), resp.Answer)
	assert.Zero(t, resp.Confidence)
	require.Len(t, h.tickets.all(), 1)
	assert.Equal(t, model.PriorityHigh, h.tickets.all()[0].Priority)
	require.Len(t, h.audits.all(), 1)

	// 锁已释放，同一用户的下一条消息可以继续处理。
	h.engine.panic = false
	done := make(chan model.AssistantResponse, 1)
	go func() { done <- h.ask("mis nóminas") }()
	select {
	case r := <-done:
		assert.False(t, r.Escalated)
	case <-time.After(2 * time.Second):
		t.Fatal("user lock was not released after panic")
	}
	assert.Len(t, h.audits.all(), 2)
}

func TestProcessMessage_ExportActions(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.result = okRows(11)
	resp := h.ask("mis fichajes de hoy")
	require.Len(t, resp.Actions, 3)
	for _, a := range resp.Actions {
		assert.Equal(t, "export", a.Type)
	}

	h.engine.result = okRows(10)
	resp = h.ask("mis fichajes de hoy")
	assert.Empty(t, resp.Actions)
}

func TestProcessMessage_ElevatedRoleGetsFullScope(t *testing.T) {
	h := newHarness(t, nil)
	boss := model.User{ID: "S1", Name: "Eva", Role: " Supervisora "}
	h.svc.ProcessMessage(context.Background(), model.IncomingMessage{Text: "fichajes de hoy", User: boss})
	require.Equal(t, 1, h.engine.callCount())
	assert.Equal(t, rbac.FullAccess, h.engine.calls[0].Scope.Level)
}

func TestProcessMessage_ConfidenceAlwaysInRange(t *testing.T) {
	h := newHarness(t, nil)
	messages := []string{
		"", "hola", "fichajes fichajes fichajes de hoy, ¿quién no ha fichado?",
		"empleados sin cuadrante ni horario", "nómina de enero", "¿cómo solicito vacaciones?",
		"incidencia: no funciona la app", "documentos", "cuadrante de abril", "el 31/02/2025",
	}
	for _, m := range messages {
		resp := h.ask(m)
		assert.GreaterOrEqual(t, resp.Confidence, 0.0, m)
		assert.LessOrEqual(t, resp.Confidence, 1.0, m)
		assert.NotEmpty(t, resp.Answer, m)
	}
	assert.Len(t, h.audits.all(), len(messages))
}
