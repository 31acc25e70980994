package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hr-assistant-go/internal/model"
)

const (
	sampleRows    = 5
	maxFieldChars = 300
)

// Summary 是大结果集的统计摘要，代替逐行数据送入语言模型。
type Summary struct {
	Total   int            `json:"total"`
	GroupBy string         `json:"agrupado_por,omitempty"`
	Counts  map[string]int `json:"conteos,omitempty"`
	Samples []model.Row    `json:"muestras"`
	Note    string         `json:"nota"`
}

// 各结果形态用于分组计数的字段。
var groupKeys = map[string]string{
	"missing_clock_ins":     "status",
	"employee_completeness": "explanation",
	"clock_records":         "work_date",
	"leave_requests":        "status",
	"leave_balances":        "leave_type",
	"shift_month":           "full_name",
	"documents":             "doc_type",
	"payroll":               "year",
}

// buildSummary 生成计数、分组样本和一段说明。
func buildSummary(kind string, rows []model.Row) Summary {
	s := Summary{
		Total: len(rows),
		Note:  fmt.Sprintf("Se muestran %d de %d registros. El listado completo está disponible para descarga.", min(sampleRows, len(rows)), len(rows)),
	}
	if key, ok := groupKeys[kind]; ok {
		s.GroupBy = key
		s.Counts = map[string]int{}
		for _, r := range rows {
			v := r.String(key)
			if v == "" {
				v = "(sin valor)"
			}
			s.Counts[v]++
		}
	}
	s.Samples = groupedSamples(rows, s.GroupBy)
	return s
}

// groupedSamples 优先从每个分组各取一条，再按原顺序补足。
func groupedSamples(rows []model.Row, key string) []model.Row {
	out := make([]model.Row, 0, sampleRows)
	used := make(map[int]bool)
	if key != "" {
		seen := map[string]bool{}
		for i, r := range rows {
			if len(out) == sampleRows {
				break
			}
			v := r.String(key)
			if seen[v] {
				continue
			}
			seen[v] = true
			used[i] = true
			out = append(out, prune(r))
		}
	}
	for i, r := range rows {
		if len(out) == sampleRows {
			break
		}
		if !used[i] {
			out = append(out, prune(r))
		}
	}
	return out
}

// prune 去掉空字段，截断长文本，并把时间统一为日期字符串。
func prune(r model.Row) model.Row {
	out := make(model.Row, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			out[k] = truncate(val, maxFieldChars)
		case []byte:
			if len(val) == 0 {
				continue
			}
			out[k] = truncate(string(val), maxFieldChars)
		case time.Time:
			if val.IsZero() {
				continue
			}
			out[k] = val.Format("2006-01-02")
		default:
			out[k] = val
		}
	}
	return out
}

func pruneAll(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = prune(r)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// sortedCounts 按数量降序输出计数，便于模板渲染。
func sortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	return out
}
