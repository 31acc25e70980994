package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/log"
)

// 缺勤推导中一次扫描的默认最大记录数。
const scanRows = 5000

// PlanSource 标记当天计划工时的来源。
type PlanSource string

const (
	PlanMedicalLeave PlanSource = "medical_leave"
	PlanVacation     PlanSource = "vacation"
	PlanHoliday      PlanSource = "holiday"
	PlanAbsence      PlanSource = "absence"
	PlanGrid         PlanSource = "grid"
	PlanTemplate     PlanSource = "template"
	PlanNone         PlanSource = "none"
)

// DayPlan 是某员工在某天的计划工时。
type DayPlan struct {
	Hours  float64
	Source PlanSource
}

// employeeDay 汇总某员工在目标日期的全部输入。
type employeeDay struct {
	Code          string
	Name          string
	WorkCenter    string
	WorksHolidays bool

	OnMedicalLeave bool
	OnVacation     bool
	IsHoliday      bool
	OnAbsence      bool

	HasGrid  bool
	GridCell string

	HasTemplate   bool
	TemplateHours float64
	TemplateToday bool

	ClockEvents int
	ClockHours  float64
}

// Plan 按固定优先级计算计划工时：病假、已批准休假、节假日（未选择节假日上班）、
// 其他已批准缺勤、排班表单元格、周模板，都不满足时为 0。
func (d employeeDay) Plan() DayPlan {
	switch {
	case d.OnMedicalLeave:
		return DayPlan{Source: PlanMedicalLeave}
	case d.OnVacation:
		return DayPlan{Source: PlanVacation}
	case d.IsHoliday && !d.WorksHolidays:
		return DayPlan{Source: PlanHoliday}
	case d.OnAbsence:
		return DayPlan{Source: PlanAbsence}
	case strings.TrimSpace(d.GridCell) != "":
		return DayPlan{Hours: DecodeShift(d.GridCell), Source: PlanGrid}
	case d.TemplateToday:
		return DayPlan{Hours: d.TemplateHours, Source: PlanTemplate}
	}
	return DayPlan{Source: PlanNone}
}

func (d employeeDay) assignment() assignment {
	return assignment{
		HasRoster:     d.HasGrid,
		HasSchedule:   d.HasTemplate,
		HasWorkCenter: strings.TrimSpace(d.WorkCenter) != "",
	}
}

const (
	statusNoClock         = "sin_fichaje"
	statusIncompleteClock = "fichaje_incompleto"
	statusUnassigned      = "sin_asignacion"
)

// evaluate 判断员工是否应出现在“应上班未打卡”列表中。
func (d employeeDay) evaluate(date time.Time) (model.Row, bool) {
	plan := d.Plan()
	a := d.assignment()

	status := ""
	switch {
	case plan.Hours > 0 && d.ClockEvents == 0:
		status = statusNoClock
	case plan.Hours > 0 && d.ClockHours == 0:
		status = statusIncompleteClock
	case a.Unassigned():
		status = statusUnassigned
	default:
		return nil, false
	}

	return model.Row{
		"employee_code": d.Code,
		"full_name":     d.Name,
		"work_center":   d.WorkCenter,
		"work_date":     date.Format(dateLayout),
		"planned_hours": math.Round(plan.Hours*100) / 100,
		"plan_source":   string(plan.Source),
		"clock_events":  d.ClockEvents,
		"clocked_hours": math.Round(d.ClockHours*100) / 100,
		"status":        status,
		"explanation":   a.Explanation(),
		"unassigned":    a.Unassigned(),
	}, true
}

// sortMissing 将三项都缺失的员工排在最前，其余按姓名排序。
func sortMissing(rows []model.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ui, uj := rows[i].Bool("unassigned"), rows[j].Bool("unassigned")
		if ui != uj {
			return ui
		}
		return strings.ToLower(rows[i].String("full_name")) < strings.ToLower(rows[j].String("full_name"))
	})
}

// missingClockIns 推导目标日期应上班但没有有效打卡的员工。
func (e *engine) missingClockIns(ctx context.Context, req Request) Result {
	const kind = "missing_clock_ins"
	date := e.today()
	if req.Entities.Date != "" {
		if d, ok := parseDate(req.Entities.Date, e.loc); ok {
			date = d
		}
	}

	days, err := e.collectEmployeeDays(ctx, req, date)
	if err != nil {
		return failedResult(kind, err)
	}

	out := make([]model.Row, 0)
	for _, d := range days {
		if row, missing := d.evaluate(date); missing {
			out = append(out, row)
		}
	}
	sortMissing(out)
	if limit := e.cap(e.maxRows); len(out) > limit {
		out = out[:limit]
	}
	return okResult(kind, out)
}

// collectEmployeeDays 分别读取员工、打卡、病假、休假、节假日、缺勤、排班表和周模板，
// 每条语句都以数据范围谓词开头。
func (e *engine) collectEmployeeDays(ctx context.Context, req Request, date time.Time) ([]*employeeDay, error) {
	day := date.Format(dateLayout)
	scope := req.Scope

	emp := newScopedQuery("missing_employees", `
SELECT e.code, e.full_name, e.work_center, e.group_name, e.works_holidays
FROM employees e`, scope.Predicate("e.code"))
	emp.And("e.status IN (?, ?, ?)", activeStatuses...)
	withIdentity(emp, req.Entities, "e.code", "e.full_name")
	emp.OrderBy("e.full_name").Limit(e.scanLimit)
	empStmt := emp.Build()
	empRows, err := e.fetch(ctx, empStmt)
	if err != nil {
		return nil, err
	}
	e.warnTruncated(empStmt, len(empRows))

	byCode := make(map[string]*employeeDay, len(empRows))
	days := make([]*employeeDay, 0, len(empRows))
	for _, r := range empRows {
		d := &employeeDay{
			Code:          r.String("code"),
			Name:          r.String("full_name"),
			WorkCenter:    r.String("work_center"),
			WorksHolidays: r.Bool("works_holidays"),
		}
		byCode[d.Code] = d
		days = append(days, d)
	}
	if len(days) == 0 {
		return days, nil
	}

	clock := newScopedQuery("missing_clock_totals", `
SELECT c.employee_code, COUNT(*) AS events, COALESCE(SUM(c.hours_worked), 0) AS total_hours
FROM clock_records c`, scope.Predicate("c.employee_code"))
	clock.And("c.work_date = ?", day).GroupBy("c.employee_code")
	if err := e.each(ctx, clock.Build(), byCode, "employee_code", func(d *employeeDay, r model.Row) {
		d.ClockEvents = r.Int("events")
		d.ClockHours = r.Float("total_hours")
	}); err != nil {
		return nil, err
	}

	medical := newScopedQuery("missing_medical_leaves", `
SELECT m.employee_code FROM medical_leaves m`, scope.Predicate("m.employee_code"))
	medical.And("m.start_date <= ?", day).And("m.end_date IS NULL OR m.end_date >= ?", day).Limit(e.scanLimit)
	if err := e.each(ctx, medical.Build(), byCode, "employee_code", func(d *employeeDay, _ model.Row) {
		d.OnMedicalLeave = true
	}); err != nil {
		return nil, err
	}

	vacation := newScopedQuery("missing_vacations", `
SELECT r.employee_code FROM leave_requests r`, scope.Predicate("r.employee_code"))
	vacation.And("r.leave_type = ?", string(model.LeaveVacation)).
		And("r.status IN (?, ?)", "approved", "aprobada").
		And("r.start_date <= ?", day).
		And("r.end_date IS NULL OR r.end_date >= ?", day).
		Limit(e.scanLimit)
	if err := e.each(ctx, vacation.Build(), byCode, "employee_code", func(d *employeeDay, _ model.Row) {
		d.OnVacation = true
	}); err != nil {
		return nil, err
	}

	// 全国节假日对所有人生效，地区节假日只对同地区员工生效。
	holiday := newScopedQuery("missing_holidays", `
SELECT e.code AS employee_code
FROM employees e
JOIN holidays h ON h.holiday_date = ? AND (h.scope = 'national' OR (h.scope = 'regional' AND h.region = e.region))`,
		scope.Predicate("e.code"), day)
	holiday.And("e.status IN (?, ?, ?)", activeStatuses...).Limit(e.scanLimit)
	if err := e.each(ctx, holiday.Build(), byCode, "employee_code", func(d *employeeDay, _ model.Row) {
		d.IsHoliday = true
	}); err != nil {
		return nil, err
	}

	// date_range 是自由文本，只能粗筛：提到目标年份（四位或两位）且属于在职员工的记录。
	absence := newScopedQuery("missing_absences", `
SELECT a.employee_code, a.date_range FROM absences a`, scope.Predicate("a.employee_code"))
	absence.And("a.status IN (?, ?)", "approved", "aprobada").
		And("a.employee_code IN (SELECT e.code FROM employees e WHERE e.status IN (?, ?, ?))", activeStatuses...).
		And("a.date_range LIKE ? OR a.date_range LIKE ? OR a.date_range LIKE ? OR a.date_range LIKE ?", yearMentions(date)...).
		OrderBy("a.employee_code").
		Limit(e.scanLimit)
	if err := e.each(ctx, absence.Build(), byCode, "employee_code", func(d *employeeDay, r model.Row) {
		if start, end, ok := ParseAbsenceRange(r.String("date_range"), e.loc); ok && covers(start, end, date) {
			d.OnAbsence = true
		}
	}); err != nil {
		return nil, err
	}

	grid := newScopedQuery("missing_shift_grid", fmt.Sprintf(`
SELECT g.employee_code, g.day_%d AS cell FROM shift_grids g`, date.Day()), scope.Predicate("g.employee_code"))
	grid.And("g.year = ? AND g.month = ?", date.Year(), int(date.Month())).Limit(e.scanLimit)
	if err := e.each(ctx, grid.Build(), byCode, "employee_code", func(d *employeeDay, r model.Row) {
		d.HasGrid = true
		if cell := strings.TrimSpace(r.String("cell")); cell != "" {
			d.GridCell = cell
		}
	}); err != nil {
		return nil, err
	}

	// 每个在职员工一行：has_template 表示任意工作日有模板，t.* 只连接目标工作日。
	weekday := isoWeekday(date)
	tpl := newScopedQuery("missing_templates", `
SELECT e.code AS employee_code,
  EXISTS (SELECT 1 FROM schedule_templates s WHERE s.work_center = e.work_center AND s.group_name = e.group_name) AS has_template,
  t.weekday, t.in1, t.out1, t.in2, t.out2, t.in3, t.out3
FROM employees e
LEFT JOIN schedule_templates t ON t.work_center = e.work_center AND t.group_name = e.group_name AND t.weekday = ?`,
		scope.Predicate("e.code"), weekday)
	tpl.And("e.status IN (?, ?, ?)", activeStatuses...)
	withIdentity(tpl, req.Entities, "e.code", "e.full_name")
	tpl.OrderBy("e.code").Limit(e.scanLimit)
	if err := e.each(ctx, tpl.Build(), byCode, "employee_code", func(d *employeeDay, r model.Row) {
		if r.Bool("has_template") {
			d.HasTemplate = true
		}
		if r["weekday"] != nil && r.Int("weekday") == weekday {
			d.HasTemplate = true
			d.TemplateToday = true
			d.TemplateHours = templateHours(r)
		}
	}); err != nil {
		return nil, err
	}

	return days, nil
}

// each 执行语句，并把每行交给对应员工；不在员工集合内的行被忽略。
func (e *engine) each(ctx context.Context, stmt Stmt, byCode map[string]*employeeDay, codeKey string, fn func(*employeeDay, model.Row)) error {
	rows, err := e.fetch(ctx, stmt)
	if err != nil {
		return err
	}
	e.warnTruncated(stmt, len(rows))
	for _, r := range rows {
		if d, ok := byCode[r.String(codeKey)]; ok {
			fn(d, r)
		}
	}
	return nil
}

// warnTruncated 在扫描结果达到上限时告警，此时推导可能漏掉部分输入。
func (e *engine) warnTruncated(stmt Stmt, n int) {
	if n >= e.scanLimit {
		log.Warnw("[QueryEngine] 扫描结果达到上限，缺勤推导可能不完整", "stmt", stmt.Name, "limit", e.scanLimit)
	}
}

// yearMentions 返回匹配目标年份四位与两位写法（/、-、. 分隔）的 LIKE 参数。
func yearMentions(date time.Time) []interface{} {
	yy := date.Year() % 100
	return []interface{}{
		fmt.Sprintf("%%%d%%", date.Year()),
		fmt.Sprintf("%%/%02d%%", yy),
		fmt.Sprintf("%%-%02d%%", yy),
		fmt.Sprintf("%%.%02d%%", yy),
	}
}
