package query

import (
	"context"
	"strings"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/textutil"
)

const (
	payrollRows      = 12
	documentRows     = 20
	knowledgeRows    = 5
	incidentCategory = "incidencias"
)

// clockRecords 按日期、整月区间或默认今天返回打卡记录，最新的在前。
func (e *engine) clockRecords(ctx context.Context, req Request) Result {
	q := newScopedQuery("clock_records", `
SELECT c.employee_code, e.full_name, c.work_date, c.clock_in, c.clock_out, c.hours_worked, c.work_center
FROM clock_records c
LEFT JOIN employees e ON e.code = c.employee_code`, req.Scope.Predicate("c.employee_code"))

	from, to := e.dateRange(req.Entities, false)
	if from.Equal(to) {
		q.And("c.work_date = ?", from.Format(dateLayout))
	} else {
		q.And("c.work_date BETWEEN ? AND ?", from.Format(dateLayout), to.Format(dateLayout))
	}
	withIdentity(q, req.Entities, "c.employee_code", "e.full_name")
	q.OrderBy("c.work_date DESC, c.clock_in DESC").Limit(e.cap(e.maxRows))
	return e.run(ctx, "clock_records", q.Build())
}

// dateRange 解析查询日期：显式日期 > 月份区间 > 今天。
func (e *engine) dateRange(ent model.Entities, lookAhead bool) (time.Time, time.Time) {
	today := e.today()
	if ent.Date != "" {
		if d, ok := parseDate(ent.Date, e.loc); ok {
			return d, d
		}
	}
	if ent.Month != nil {
		return MonthWindow(*ent.Month, today, lookAhead)
	}
	return today, today
}

// leave 无月份时返回假期余额；有月份时返回与该月重叠的申请。
func (e *engine) leave(ctx context.Context, req Request) Result {
	ent := req.Entities
	if ent.Month == nil {
		q := newScopedQuery("leave_balances", `
SELECT b.employee_code, e.full_name, b.year, b.leave_type, b.accrued, b.consumed, b.remaining
FROM leave_balances b
LEFT JOIN employees e ON e.code = b.employee_code`, req.Scope.Predicate("b.employee_code"))
		q.And("b.year = ?", e.today().Year())
		if ent.LeaveType != "" {
			q.And("b.leave_type = ?", string(ent.LeaveType))
		}
		withIdentity(q, ent, "b.employee_code", "e.full_name")
		q.OrderBy("e.full_name, b.leave_type").Limit(e.cap(e.maxRows))
		return e.run(ctx, "leave_balances", q.Build())
	}

	start, end := MonthWindow(*ent.Month, e.today(), true)
	q := newScopedQuery("leave_requests", `
SELECT r.id, r.employee_code, e.full_name, r.leave_type, r.start_date, r.end_date, r.days, r.status
FROM leave_requests r
LEFT JOIN employees e ON e.code = r.employee_code`, req.Scope.Predicate("r.employee_code"))
	q.And("r.start_date <= ?", end.Format(dateLayout))
	q.And("r.end_date IS NULL OR r.end_date >= ?", start.Format(dateLayout))
	if ent.LeaveType != "" {
		q.And("r.leave_type = ?", string(ent.LeaveType))
	}
	withIdentity(q, ent, "r.employee_code", "e.full_name")
	q.OrderBy("r.start_date ASC").Limit(e.cap(e.maxRows))
	return e.run(ctx, "leave_requests", q.Build())
}

// payroll 返回最近的工资单，给出月份时只取该月。
func (e *engine) payroll(ctx context.Context, req Request) Result {
	ent := req.Entities
	q := newScopedQuery("payroll", `
SELECT p.employee_code, e.full_name, p.year, p.month, p.gross_amount, p.net_amount, p.deductions, p.paid_at
FROM payroll p
LEFT JOIN employees e ON e.code = p.employee_code`, req.Scope.Predicate("p.employee_code"))
	if ent.Month != nil {
		start, _ := MonthWindow(*ent.Month, e.today(), false)
		q.And("p.year = ? AND p.month = ?", start.Year(), int(start.Month()))
	}
	withIdentity(q, ent, "p.employee_code", "e.full_name")
	q.OrderBy("p.year DESC, p.month DESC").Limit(e.cap(payrollRows))
	return e.run(ctx, "payroll", q.Build())
}

// documents 返回最近的文档，可按类型和月份过滤。
func (e *engine) documents(ctx context.Context, req Request) Result {
	ent := req.Entities
	q := newScopedQuery("documents", `
SELECT d.id, d.employee_code, e.full_name, d.doc_type, d.title, d.issued_at, d.url
FROM documents d
LEFT JOIN employees e ON e.code = d.employee_code`, req.Scope.Predicate("d.employee_code"))
	if ent.DocType != "" {
		q.And("d.doc_type = ?", ent.DocType)
	}
	if ent.Month != nil {
		start, end := MonthWindow(*ent.Month, e.today(), false)
		q.And("d.issued_at BETWEEN ? AND ?", start.Format(dateLayout), end.Format(dateLayout))
	}
	withIdentity(q, ent, "d.employee_code", "e.full_name")
	q.OrderBy("d.issued_at DESC").Limit(e.cap(documentRows))
	return e.run(ctx, "documents", q.Build())
}

// 检索词中忽略的常见词。
var stopWords = map[string]bool{
	"como": true, "cual": true, "cuales": true, "donde": true, "cuando": true, "para": true,
	"puedo": true, "quiero": true, "tengo": true, "sobre": true, "esta": true, "este": true,
	"hacer": true, "necesito": true, "saber": true, "tiene": true, "tienen": true, "porque": true,
	"hola": true, "favor": true, "solicito": true, "solicitar": true, "pedir": true, "reportar": true,
}

// searchTerms 从归一化文本中挑出最多 5 个检索词。
func searchTerms(folded string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, w := range strings.FieldsFunc(folded, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == 'ñ')
	}) {
		if len([]rune(w)) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == 5 {
			break
		}
	}
	return terms
}

// knowledge 在知识库中按标题和正文检索，最近更新的在前。
func (e *engine) knowledge(ctx context.Context, req Request, category string) Result {
	terms := searchTerms(textutil.Fold(req.Text))
	if e.kb != nil {
		rows, err := e.kb.Search(ctx, KnowledgeQuery{
			Terms:           terms,
			Category:        category,
			AllAudienceOnly: !req.Scope.FullAccess(),
			Size:            knowledgeRows,
		})
		if err != nil {
			return failedResult("knowledge", err)
		}
		return okResult("knowledge", rows)
	}

	q := newScopedQuery("knowledge", `
SELECT a.id, a.title, a.body, a.category, a.updated_at
FROM kb_articles a`, req.Scope.Audience("a.audience"))
	if len(terms) > 0 {
		conds := make([]string, 0, len(terms))
		args := make([]interface{}, 0, len(terms)*2)
		for _, t := range terms {
			conds = append(conds, "a.title LIKE ? OR a.body LIKE ?")
			args = append(args, likeContains(t), likeContains(t))
		}
		q.And(strings.Join(conds, " OR "), args...)
	}
	if category != "" {
		q.And("a.category = ?", category)
	}
	q.OrderBy("a.updated_at DESC").Limit(e.cap(knowledgeRows))
	return e.run(ctx, "knowledge", q.Build())
}
