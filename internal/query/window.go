package query

import (
	"time"

	"hr-assistant-go/internal/model"
)

const dateLayout = "2006-01-02"

// ResolveMonth 为未给出年份的月份名确定年份。
// lookAhead 为 true 时（假期），12 月里提到更早的月份指下一年；
// 为 false 时，1 月里提到 12 月指上一年；其余情况均为当年。
func ResolveMonth(month time.Month, now time.Time, lookAhead bool) int {
	year := now.Year()
	if lookAhead {
		if now.Month() == time.December && month < time.December {
			return year + 1
		}
		return year
	}
	if now.Month() == time.January && month == time.December {
		return year - 1
	}
	return year
}

// MonthWindow 返回月份的第一天与最后一天（含）。
func MonthWindow(ref model.MonthRef, now time.Time, lookAhead bool) (time.Time, time.Time) {
	year := ref.Year
	if year == 0 {
		year = ResolveMonth(ref.Month, now, lookAhead)
	}
	start := time.Date(year, ref.Month, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, -1)
	return start, end
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseDate 解析 YYYY-MM-DD 实体，失败时返回 ok=false。
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// isoWeekday 将 time.Weekday 转为 1=周一 … 7=周日。
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
