package query

import (
	"regexp"
	"strconv"
	"strings"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/textutil"
)

// 表示不上班的单元格字面量（归一化后比较）。
var offLiterals = map[string]bool{
	"libre": true, "l": true, "descanso": true, "d": true,
	"vac": true, "vacaciones": true, "v": true,
	"festivo": true, "fest": true, "f": true,
	"baja": true, "b": true, "it": true,
	"ausencia": true, "aus": true, "ap": true, "asuntos propios": true,
	"permiso": true, "p": true,
}

var (
	rangeCell    = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})(?:\s*/\s*\d{1,2}:\d{2}\s*-\s*\d{1,2}:\d{2})?$`)
	rotationCell = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*h\s*\(\s*(\d+)\s*[x×*]\s*(\d+(?:[.,]\d+)?)\s*h\s*\)$`)
	fullDayCell  = regexp.MustCompile(`^24\s*h$`)
	hoursCell    = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*h$`)
	clockTime    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// DecodeShift 将排班表单元格解码为计划工时。
//   - 休息类字面量（LIBRE、VAC、FESTIVO…）为 0
//   - "HH:MM-HH:MM"（可带 "/第二段"）取第一段的时长
//   - "Nh (K×Mh)" 取单次轮班 M
//   - "24h" 视为三个 8 小时轮班，取 8
//   - "Nh" 取 N
//   - 其余无法识别的内容为 0
func DecodeShift(cell string) float64 {
	c := textutil.Fold(cell)
	if c == "" || offLiterals[c] {
		return 0
	}
	if m := rangeCell.FindStringSubmatch(c); m != nil {
		start, ok1 := minutesOf(m[1], m[2])
		end, ok2 := minutesOf(m[3], m[4])
		if !ok1 || !ok2 {
			return 0
		}
		return float64(spanMinutes(start, end)) / 60
	}
	if m := rotationCell.FindStringSubmatch(c); m != nil {
		return parseHours(m[3])
	}
	if fullDayCell.MatchString(c) {
		return 8
	}
	if m := hoursCell.FindStringSubmatch(c); m != nil {
		return parseHours(m[1])
	}
	return 0
}

// isOffCell 判断单元格是否为休息类字面量。
func isOffCell(cell string) bool {
	return offLiterals[textutil.Fold(cell)]
}

func parseHours(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f < 0 || f > 24 {
		return 0
	}
	return f
}

func minutesOf(h, m string) (int, bool) {
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh > 24 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// spanMinutes 计算跨午夜安全的时长；起止相同视为 0。
func spanMinutes(start, end int) int {
	if end == start {
		return 0
	}
	if end < start {
		end += 24 * 60
	}
	return end - start
}

// parseClock 从 "09:00" 或驱动返回的 "09:00:00" 中取出分钟数。
func parseClock(v string) (int, bool) {
	m := clockTime.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	return minutesOf(m[1], m[2])
}

// templateHours 累加周模板一天内最多三段上下班时间。
func templateHours(row model.Row) float64 {
	total := 0
	for i := 1; i <= 3; i++ {
		in, ok1 := parseClock(row.String("in" + strconv.Itoa(i)))
		out, ok2 := parseClock(row.String("out" + strconv.Itoa(i)))
		if !ok1 || !ok2 {
			continue
		}
		total += spanMinutes(in, out)
	}
	return float64(total) / 60
}
