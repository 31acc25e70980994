// Package model 包含了应用的数据模型定义。
package model

import "time"

// User 是调用方身份。ID 即员工编号，用作数据归属列的比较值。
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// IncomingMessage 是单次请求的输入，创建后不可变。
type IncomingMessage struct {
	Text string
	User User
}

// Intent 是查询意图的封闭枚举。
type Intent string

const (
	IntentClockRecords   Intent = "clock_records"
	IntentRoster         Intent = "roster"
	IntentLeave          Intent = "leave"
	IntentEmployeeRoster Intent = "employee_roster"
	IntentPayroll        Intent = "payroll"
	IntentDocuments      Intent = "documents"
	IntentProcedures     Intent = "procedures"
	IntentIncident       Intent = "incident"
	IntentUnknown        Intent = "unknown"
)

// Intents 按分类器的发现顺序列出所有非 unknown 意图。
var Intents = []Intent{
	IntentClockRecords,
	IntentRoster,
	IntentLeave,
	IntentEmployeeRoster,
	IntentPayroll,
	IntentDocuments,
	IntentProcedures,
	IntentIncident,
}

// LeaveType 区分假期类型。
type LeaveType string

const (
	LeavePersonal LeaveType = "personal"
	LeaveVacation LeaveType = "vacation"
)

// ListFilter 是员工完整性报表的筛选条件。
type ListFilter string

const (
	FilterNone                 ListFilter = ""
	FilterNoRoster             ListFilter = "no_roster"
	FilterNoSchedule           ListFilter = "no_schedule"
	FilterNoWorkCenter         ListFilter = "no_work_center"
	FilterNoRosterAndSchedule  ListFilter = "no_roster_and_no_schedule"
	FilterNoRosterOrSchedule   ListFilter = "no_roster_or_no_schedule"
	FilterNoCenterRosterAndSch ListFilter = "no_work_center_and_no_roster_and_no_schedule"
	FilterNoCenterAndRoster    ListFilter = "no_work_center_and_no_roster"
	FilterNoCenterOrRoster     ListFilter = "no_work_center_or_no_roster"
	FilterNoCenterAndSchedule  ListFilter = "no_work_center_and_no_schedule"
	FilterNoCenterOrSchedule   ListFilter = "no_work_center_or_no_schedule"
)

// MonthRef 是从文本中识别出的月份。Year 为 0 表示未显式给出年份。
type MonthRef struct {
	Month     time.Month `json:"month"`
	Year      int        `json:"year,omitempty"`
	FullMonth bool       `json:"full_month,omitempty"`
}

// Entities 是从自由文本中抽取的结构化参数。
type Entities struct {
	Code            string     `json:"code,omitempty"`
	Name            string     `json:"name,omitempty"`
	Date            string     `json:"date,omitempty"` // YYYY-MM-DD
	Month           *MonthRef  `json:"month,omitempty"`
	LeaveType       LeaveType  `json:"leave_type,omitempty"`
	ListFilter      ListFilter `json:"list_filter,omitempty"`
	DocType         string     `json:"doc_type,omitempty"`
	MissingClockIns bool       `json:"missing_clock_ins,omitempty"`
}

// IsEmpty 判断是否没有任何参数。MissingClockIns 是查询模式标记，不算参数。
func (e Entities) IsEmpty() bool {
	return e.Code == "" && e.Name == "" && e.Date == "" && e.Month == nil &&
		e.LeaveType == "" && e.ListFilter == FilterNone && e.DocType == ""
}

// HasTemporal 判断是否带有日期或月份。
func (e Entities) HasTemporal() bool {
	return e.Date != "" || e.Month != nil
}

// IntentResult 是分类器对单条消息的输出。
type IntentResult struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	Matches    int      `json:"matches"`
	Compound   bool     `json:"compound"`
}

// ClampConfidence 将置信度限制在 [0,1]。
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
