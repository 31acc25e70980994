package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/rbac"
	"hr-assistant-go/pkg/log"
)

// ErrUnsupportedIntent 表示该意图没有对应的查询构造器。
var ErrUnsupportedIntent = errors.New("unsupported intent")

// Status 是查询结果的显式状态，编排器据此决定是否升级。
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result 是一次查询的结果。Rows 永远不为 nil。
type Result struct {
	Status Status
	Rows   []model.Row
	Reason string
	Err    error
	// Kind 标识结果形态，例如 clock_records 或 missing_clock_ins。
	Kind string
}

func okResult(kind string, rows []model.Row) Result {
	if rows == nil {
		rows = []model.Row{}
	}
	if len(rows) == 0 {
		return Result{Status: StatusEmpty, Rows: rows, Kind: kind}
	}
	return Result{Status: StatusOK, Rows: rows, Kind: kind}
}

func failedResult(kind string, err error) Result {
	return Result{Status: StatusFailed, Rows: []model.Row{}, Reason: err.Error(), Err: err, Kind: kind}
}

// Request 是一次查询的输入。
type Request struct {
	Scope    rbac.Scope
	Intent   model.Intent
	Entities model.Entities
	Text     string
}

// KnowledgeSearcher 是知识库的可替换检索后端（例如 Elasticsearch）。
type KnowledgeSearcher interface {
	Search(ctx context.Context, q KnowledgeQuery) ([]model.Row, error)
}

// KnowledgeQuery 是知识库检索参数。AllAudienceOnly 为 true 时只返回 audience=all 的文章。
type KnowledgeQuery struct {
	Terms           []string
	Category        string
	AllAudienceOnly bool
	Size            int
}

// Engine 定义了数据查询引擎的接口。
type Engine interface {
	Run(ctx context.Context, req Request) Result
}

type engine struct {
	src       Source
	kb        KnowledgeSearcher
	maxRows   int
	scanLimit int
	now       func() time.Time
	loc       *time.Location
}

// EngineOption 配置查询引擎。
type EngineOption func(*engine)

// WithKnowledgeSearcher 替换默认的 SQL 知识库检索。
func WithKnowledgeSearcher(kb KnowledgeSearcher) EngineOption {
	return func(e *engine) {
		e.kb = kb
	}
}

// WithMaxRows 设置所有查询的行数上限。
func WithMaxRows(n int) EngineOption {
	return func(e *engine) {
		if n > 0 {
			e.maxRows = n
		}
	}
}

// WithClock 注入时钟与时区。
func WithClock(now func() time.Time, loc *time.Location) EngineOption {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine 创建一个新的查询引擎实例。
func NewEngine(src Source, opts ...EngineOption) Engine {
	e := &engine{src: src, maxRows: 100, scanLimit: scanRows, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) today() time.Time {
	return dayOf(e.now().In(e.loc))
}

func (e *engine) cap(n int) int {
	if n <= 0 || n > e.maxRows {
		return e.maxRows
	}
	return n
}

// Run 按意图分发到对应的构造器。查询错误不会向上抛出，而是体现在 Result.Status 上。
func (e *engine) Run(ctx context.Context, req Request) Result {
	var res Result
	switch {
	case req.Entities.MissingClockIns && (req.Intent == model.IntentClockRecords ||
		req.Intent == model.IntentRoster || req.Intent == model.IntentEmployeeRoster):
		res = e.missingClockIns(ctx, req)
	case req.Intent == model.IntentClockRecords:
		res = e.clockRecords(ctx, req)
	case req.Intent == model.IntentRoster:
		res = e.shiftMonth(ctx, req)
	case req.Intent == model.IntentEmployeeRoster:
		res = e.completeness(ctx, req)
	case req.Intent == model.IntentLeave:
		res = e.leave(ctx, req)
	case req.Intent == model.IntentPayroll:
		res = e.payroll(ctx, req)
	case req.Intent == model.IntentDocuments:
		res = e.documents(ctx, req)
	case req.Intent == model.IntentProcedures:
		res = e.knowledge(ctx, req, "")
	case req.Intent == model.IntentIncident:
		res = e.knowledge(ctx, req, incidentCategory)
	default:
		res = failedResult(string(req.Intent), fmt.Errorf("%w: %s", ErrUnsupportedIntent, req.Intent))
	}

	if res.Status == StatusFailed {
		log.Warnf("[QueryEngine] 查询失败, intent: %s, kind: %s, reason: %s", req.Intent, res.Kind, res.Reason)
	} else {
		log.Debugf("[QueryEngine] intent: %s, kind: %s, rows: %d", req.Intent, res.Kind, len(res.Rows))
	}
	return res
}

// fetch 执行单条语句并把错误包装上语句名。
func (e *engine) fetch(ctx context.Context, stmt Stmt) ([]model.Row, error) {
	rows, err := e.src.Rows(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stmt.Name, err)
	}
	return rows, nil
}

func (e *engine) run(ctx context.Context, kind string, stmt Stmt) Result {
	rows, err := e.fetch(ctx, stmt)
	if err != nil {
		return failedResult(kind, err)
	}
	return okResult(kind, rows)
}
