package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"hr-assistant-go/internal/model"
)

var monthNames = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October, "noviembre": time.November,
	"diciembre": time.December,
}

var (
	codePattern      = regexp.MustCompile(`\bcodigo(?:\s+de\s+empleado)?\s*:?\s*([a-z]*\d[a-z0-9-]*)\b`)
	namePattern      = regexp.MustCompile(`\b(?:de|del|para)\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)+)`)
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dmyDatePattern   = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})\b`)
	yesterdayPattern = regexp.MustCompile(`\bayer\b`)
	monthPattern     = regexp.MustCompile(`\b(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)\b(?:\s+(?:de|del)\s+(\d{4}))?`)
	fullMonthPattern = regexp.MustCompile(`\b(todo el mes|mes completo|este mes|mes actual|el mes entero)\b`)
	lastMonthPattern = regexp.MustCompile(`\b(mes pasado|mes anterior)\b`)
	personalPattern  = regexp.MustCompile(`\b(asuntos? propios?|dias? propios?)\b`)
	vacationPattern  = regexp.MustCompile(`\bvacaciones\b`)
	docTypePattern   = regexp.MustCompile(`\b(contrato|certificado|justificante|formacion)s?\b`)
	missingPattern   = regexp.MustCompile(`no (ha|han|hayan|haya) (fichado|registrado)|sin fichar|sin (ningun )?fichaje|deberian? (haber )?(trabajado|fichado)|debian? (haber )?(trabajar|trabajado)|tenian? que (trabajar|fichar)|no tienen? (ningun )?(fichaje|registro de (entrada|fichaje))|faltan? (por )?fichar`)

	// 否定词后接一个属性，之后可以用 o / y / ni 连接更多属性。
	filterPattern = regexp.MustCompile(`\b(sin|ni|faltan?|no tienen?)\s+(?:(?:un|una|el|la|de|asignad[oa]s?)\s+)*(cuadrante|horario|centro)\b((?:\s*,?\s*(?:o|y|ni)\s+(?:sin\s+)?(?:(?:un|una|el|la|de)\s+)*(?:cuadrante|horario|centro)\b)*)`)
	attrPattern   = regexp.MustCompile(`\b(cuadrante|horario|centro)\b`)
	orPattern     = regexp.MustCompile(`\bo\b`)
	norPattern    = regexp.MustCompile(`\bni\b`)
)

// extractEntities 与意图无关地从原文（姓名需要大小写）和归一化文本中抽取实体。
func extractEntities(original, folded string, now time.Time) model.Entities {
	var e model.Entities

	if m := codePattern.FindStringSubmatch(folded); m != nil {
		e.Code = strings.ToUpper(m[1])
	}
	if m := namePattern.FindStringSubmatch(original); m != nil {
		e.Name = strings.Join(strings.Fields(m[1]), " ")
	}

	e.Date = extractDate(folded, now)
	e.Month = extractMonth(folded, now)

	switch {
	case personalPattern.MatchString(folded):
		e.LeaveType = model.LeavePersonal
	case vacationPattern.MatchString(folded):
		e.LeaveType = model.LeaveVacation
	}

	if m := docTypePattern.FindStringSubmatch(folded); m != nil {
		e.DocType = m[1]
	}

	e.ListFilter = extractListFilter(folded)
	e.MissingClockIns = missingPattern.MatchString(folded)
	return e
}

func extractDate(folded string, now time.Time) string {
	if m := isoDatePattern.FindStringSubmatch(folded); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if s, ok := validDate(y, mo, d); ok {
			return s
		}
	}
	if m := dmyDatePattern.FindStringSubmatch(folded); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		if s, ok := validDate(y, mo, d); ok {
			return s
		}
	}
	if yesterdayPattern.MatchString(folded) {
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	}
	return ""
}

// validDate 拒绝 31/02 这类会被 time.Date 规整到下个月的日期。
func validDate(y, mo, d int) (string, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != mo {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func extractMonth(folded string, now time.Time) *model.MonthRef {
	fullIdx := fullMonthPattern.FindStringIndex(folded)

	if m := monthPattern.FindStringSubmatchIndex(folded); m != nil {
		name := folded[m[2]:m[3]]
		ref := &model.MonthRef{Month: monthNames[name]}
		if m[4] >= 0 {
			ref.Year, _ = strconv.Atoi(folded[m[4]:m[5]])
		}
		// 只有出现在月份名之前的“整月”短语才标记为整月。
		if fullIdx != nil && fullIdx[0] < m[0] {
			ref.FullMonth = true
		}
		return ref
	}

	if fullIdx != nil {
		return &model.MonthRef{Month: now.Month(), Year: now.Year(), FullMonth: true}
	}
	if lastMonthPattern.MatchString(folded) {
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return &model.MonthRef{Month: prev.Month(), Year: prev.Year(), FullMonth: true}
	}
	return nil
}

// extractListFilter 识别“sin cuadrante / sin horario / sin centro”及其组合。
// “ni … ni …”与“y”表示同时缺失（AND），单独的“o”表示任一缺失（OR）。
func extractListFilter(folded string) model.ListFilter {
	var roster, schedule, center bool
	conjunctive := false
	disjunctive := false

	for _, m := range filterPattern.FindAllStringSubmatch(folded, -1) {
		if m[1] == "ni" {
			conjunctive = true
		}
		attrs := []string{m[2]}
		if tail := m[3]; tail != "" {
			for _, a := range attrPattern.FindAllStringSubmatch(tail, -1) {
				attrs = append(attrs, a[1])
			}
			if norPattern.MatchString(tail) || strings.Contains(" "+tail+" ", " y ") {
				conjunctive = true
			}
			if orPattern.MatchString(tail) {
				disjunctive = true
			}
		}
		for _, a := range attrs {
			switch a {
			case "cuadrante":
				roster = true
			case "horario":
				schedule = true
			case "centro":
				center = true
			}
		}
	}

	anyOf := disjunctive && !conjunctive
	switch {
	case roster && schedule && center:
		return model.FilterNoCenterRosterAndSch
	case roster && schedule:
		if anyOf {
			return model.FilterNoRosterOrSchedule
		}
		return model.FilterNoRosterAndSchedule
	case center && roster:
		if anyOf {
			return model.FilterNoCenterOrRoster
		}
		return model.FilterNoCenterAndRoster
	case center && schedule:
		if anyOf {
			return model.FilterNoCenterOrSchedule
		}
		return model.FilterNoCenterAndSchedule
	case center:
		return model.FilterNoWorkCenter
	case roster:
		return model.FilterNoRoster
	case schedule:
		return model.FilterNoSchedule
	}
	return model.FilterNone
}
