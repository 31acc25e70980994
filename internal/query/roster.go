package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"hr-assistant-go/internal/model"
)

// 在职状态取值。
var activeStatuses = []interface{}{"active", "activo", "alta"}

const (
	explainNoRoster   = "falta cuadrante"
	explainNoSchedule = "falta horario"
	explainNoCenter   = "falta centro de trabajo"
)

// assignment 是员工排班归属的三项完整性。
type assignment struct {
	HasRoster     bool
	HasSchedule   bool
	HasWorkCenter bool
}

// Explanation 依次列出缺失项，用逗号连接。
func (a assignment) Explanation() string {
	var parts []string
	if !a.HasRoster {
		parts = append(parts, explainNoRoster)
	}
	if !a.HasSchedule {
		parts = append(parts, explainNoSchedule)
	}
	if !a.HasWorkCenter {
		parts = append(parts, explainNoCenter)
	}
	return strings.Join(parts, ", ")
}

// Unassigned 表示三项全部缺失。
func (a assignment) Unassigned() bool {
	return !a.HasRoster && !a.HasSchedule && !a.HasWorkCenter
}

type filterSpec struct {
	having string
	match  func(a assignment) bool
}

// listFilters 同时给出 SQL HAVING 子句与内存中的判定，两者语义一致。
var listFilters = map[model.ListFilter]filterSpec{
	model.FilterNoRoster: {
		having: "has_roster = 0",
		match:  func(a assignment) bool { return !a.HasRoster },
	},
	model.FilterNoSchedule: {
		having: "has_schedule = 0",
		match:  func(a assignment) bool { return !a.HasSchedule },
	},
	model.FilterNoWorkCenter: {
		having: "has_work_center = 0",
		match:  func(a assignment) bool { return !a.HasWorkCenter },
	},
	model.FilterNoRosterAndSchedule: {
		having: "has_roster = 0 AND has_schedule = 0",
		match:  func(a assignment) bool { return !a.HasRoster && !a.HasSchedule },
	},
	model.FilterNoRosterOrSchedule: {
		having: "(has_roster = 0 OR has_schedule = 0)",
		match:  func(a assignment) bool { return !a.HasRoster || !a.HasSchedule },
	},
	model.FilterNoCenterRosterAndSch: {
		having: "has_work_center = 0 AND has_roster = 0 AND has_schedule = 0",
		match:  func(a assignment) bool { return a.Unassigned() },
	},
	model.FilterNoCenterAndRoster: {
		having: "has_work_center = 0 AND has_roster = 0",
		match:  func(a assignment) bool { return !a.HasWorkCenter && !a.HasRoster },
	},
	model.FilterNoCenterOrRoster: {
		having: "(has_work_center = 0 OR has_roster = 0)",
		match:  func(a assignment) bool { return !a.HasWorkCenter || !a.HasRoster },
	},
	model.FilterNoCenterAndSchedule: {
		having: "has_work_center = 0 AND has_schedule = 0",
		match:  func(a assignment) bool { return !a.HasWorkCenter && !a.HasSchedule },
	},
	model.FilterNoCenterOrSchedule: {
		having: "(has_work_center = 0 OR has_schedule = 0)",
		match:  func(a assignment) bool { return !a.HasWorkCenter || !a.HasSchedule },
	},
}

// MatchesFilter 判断员工的完整性是否满足筛选条件；无筛选时总是满足。
func MatchesFilter(f model.ListFilter, hasRoster, hasSchedule, hasWorkCenter bool) bool {
	rule, ok := listFilters[f]
	if !ok {
		return true
	}
	return rule.match(assignment{HasRoster: hasRoster, HasSchedule: hasSchedule, HasWorkCenter: hasWorkCenter})
}

// completeness 生成员工完整性报表：是否有本月排班、是否有匹配的周模板、是否有工作中心。
func (e *engine) completeness(ctx context.Context, req Request) Result {
	ent := req.Entities
	today := e.today()
	year, month := today.Year(), today.Month()
	if ent.Month != nil {
		start, _ := MonthWindow(*ent.Month, today, false)
		year, month = start.Year(), start.Month()
	}

	q := newScopedQuery("employee_completeness", `
SELECT e.code AS employee_code, e.full_name, e.work_center, e.group_name,
  EXISTS (SELECT 1 FROM shift_grids g WHERE g.employee_code = e.code AND g.year = ? AND g.month = ?) AS has_roster,
  EXISTS (SELECT 1 FROM schedule_templates t WHERE t.work_center = e.work_center AND t.group_name = e.group_name) AS has_schedule,
  (e.work_center IS NOT NULL AND e.work_center <> '') AS has_work_center
FROM employees e`, req.Scope.Predicate("e.code"), year, int(month))
	q.And("e.status IN (?, ?, ?)", activeStatuses...)
	withIdentity(q, ent, "e.code", "e.full_name")

	rule, filtered := listFilters[ent.ListFilter]
	if filtered {
		q.Having(rule.having)
	}
	q.OrderBy("e.full_name").Limit(e.cap(e.maxRows))

	stmt := q.Build()
	rows, err := e.fetch(ctx, stmt)
	if err != nil {
		return failedResult(stmt.Name, err)
	}

	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		a := assignment{
			HasRoster:     r.Bool("has_roster"),
			HasSchedule:   r.Bool("has_schedule"),
			HasWorkCenter: r.Bool("has_work_center") && strings.TrimSpace(r.String("work_center")) != "",
		}
		if filtered && !rule.match(a) {
			continue
		}
		out = append(out, model.Row{
			"employee_code":   r.String("employee_code"),
			"full_name":       r.String("full_name"),
			"work_center":     r.String("work_center"),
			"group_name":      r.String("group_name"),
			"has_roster":      a.HasRoster,
			"has_schedule":    a.HasSchedule,
			"has_work_center": a.HasWorkCenter,
			"explanation":     a.Explanation(),
		})
	}
	return okResult(stmt.Name, out)
}

// dayColumns 是排班表的 31 个日列，列名由程序生成，不来自用户输入。
func dayColumns(prefix string) string {
	cols := make([]string, 31)
	for i := range cols {
		cols[i] = fmt.Sprintf("%sday_%d", prefix, i+1)
	}
	return strings.Join(cols, ", ")
}

// shiftMonth 汇总某月每位员工排班表中的计划总工时。
func (e *engine) shiftMonth(ctx context.Context, req Request) Result {
	ent := req.Entities
	month := model.MonthRef{Month: e.today().Month(), Year: e.today().Year()}
	if ent.Month != nil {
		month = *ent.Month
	}
	start, end := MonthWindow(month, e.today(), false)

	q := newScopedQuery("shift_month", `
SELECT g.employee_code, e.full_name, g.year, g.month, `+dayColumns("g.")+`
FROM shift_grids g
LEFT JOIN employees e ON e.code = g.employee_code`, req.Scope.Predicate("g.employee_code"))
	q.And("g.year = ? AND g.month = ?", start.Year(), int(start.Month()))
	withIdentity(q, ent, "g.employee_code", "e.full_name")
	q.OrderBy("e.full_name").Limit(e.cap(e.maxRows))

	stmt := q.Build()
	rows, err := e.fetch(ctx, stmt)
	if err != nil {
		return failedResult(stmt.Name, err)
	}

	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		var total float64
		worked := 0
		for d := 1; d <= end.Day(); d++ {
			h := DecodeShift(r.String(fmt.Sprintf("day_%d", d)))
			if h > 0 {
				total += h
				worked++
			}
		}
		out = append(out, model.Row{
			"employee_code": r.String("employee_code"),
			"full_name":     r.String("full_name"),
			"year":          start.Year(),
			"month":         int(start.Month()),
			"total_hours":   math.Round(total*100) / 100,
			"worked_days":   worked,
		})
	}
	return okResult(stmt.Name, out)
}
