package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/pkg/tasks"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets []*model.Ticket
	err     error
}

func (r *fakeTicketRepo) Create(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tickets = append(r.tickets, t)
	return nil
}

func (r *fakeTicketRepo) all() []*model.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Ticket(nil), r.tickets...)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []*model.AuditRecord
	err     error
}

func (r *fakeAuditRepo) Create(_ context.Context, rec *model.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func (r *fakeAuditRepo) all() []*model.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.AuditRecord(nil), r.records...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []tasks.SupportNotification
	err   error
	panic bool
}

func (n *fakeNotifier) Notify(_ context.Context, note tasks.SupportNotification) error {
	if n.panic {
		panic("telegram exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeEngine struct {
	mu     sync.Mutex
	result query.Result
	panic  bool
	calls  []query.Request
}

func (e *fakeEngine) Run(_ context.Context, req query.Request) query.Result {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()
	if e.panic {
		panic("nil map write")
	}
	return e.result
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type stubClassifier struct {
	result model.IntentResult
}

func (c stubClassifier) Classify(string) model.IntentResult { return c.result }
func (c stubClassifier) HasTemporalPhrase(string) bool     { return false }

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newMemoryStore(clock *manualClock) repository.ContextStore {
	store, err := repository.NewContextStore(repository.ContextStoreMemory,
		repository.WithContextTTL(15*time.Minute), repository.WithStoreClock(clock.Now))
	if err != nil {
		panic(err)
	}
	return store
}

type failingStore struct{}

func (failingStore) Save(context.Context, *model.ConversationContext) error {
	return errors.New("redis down")
}

func (failingStore) Get(context.Context, string) (*model.ConversationContext, error) {
	return nil, errors.New("redis down")
}

func (failingStore) Delete(context.Context, string) error { return nil }

func okRows(n int) query.Result {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{"employee_code": "E1", "full_name": "Ana Ruiz", "work_date": "2025-03-14", "hours_worked": 8.0}
	}
	if n == 0 {
		return query.Result{Status: query.StatusEmpty, Rows: rows, Kind: "clock_records"}
	}
	return query.Result{Status: query.StatusOK, Rows: rows, Kind: "clock_records"}
}
