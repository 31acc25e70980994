package query

import (
	"regexp"
	"strconv"
	"time"
)

var (
	absenceISO = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	absenceDMY = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{4}|\d{2})`)
	anyDate    = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/.-]\d{1,2}[/.-](?:\d{4}|\d{2})`)
)

// ParseAbsenceRange 规整自由文本的缺勤区间，例如 "01/03/2025 - 05/03/2025"、
// "2025-03-01 al 2025-03-05" 或单个日期。起止颠倒时自动交换。
func ParseAbsenceRange(s string, loc *time.Location) (time.Time, time.Time, bool) {
	tokens := anyDate.FindAllString(s, -1)
	var dates []time.Time
	for _, tok := range tokens {
		if t, ok := parseAbsenceDate(tok, loc); ok {
			dates = append(dates, t)
		}
	}
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end := dates[0], dates[len(dates)-1]
	if end.Before(start) {
		start, end = end, start
	}
	return start, end, true
}

func parseAbsenceDate(tok string, loc *time.Location) (time.Time, bool) {
	var y, m, d int
	if g := absenceISO.FindStringSubmatch(tok); g != nil {
		y, _ = strconv.Atoi(g[1])
		m, _ = strconv.Atoi(g[2])
		d, _ = strconv.Atoi(g[3])
	} else if g := absenceDMY.FindStringSubmatch(tok); g != nil {
		d, _ = strconv.Atoi(g[1])
		m, _ = strconv.Atoi(g[2])
		y, _ = strconv.Atoi(g[3])
		if y < 100 {
			y += 2000
		}
	} else {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// covers 判断 [start,end] 是否包含 day（按自然日比较）。
func covers(start, end, day time.Time) bool {
	return !day.Before(dayOf(start)) && !day.After(dayOf(end))
}
