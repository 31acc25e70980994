package formatter

import (
	"fmt"
	"strings"

	"hr-assistant-go/internal/model"
)

const listLines = 10

// 用户可见文本统一放在这里，全部为西班牙语，不含任何内部错误信息。
const (
	greetingText = "Hola, soy el asistente de RRHH. Puedo ayudarte con fichajes, cuadrantes, vacaciones y asuntos propios, nóminas, documentos y procedimientos. " +
		"Prueba por ejemplo: \"¿Cuáles son mis fichajes de hoy?\", \"¿Cuántos días de vacaciones me quedan?\" o \"¿Quién no ha fichado hoy?\"."

	clarifyClockText = "¿De qué fecha quieres consultar los fichajes? Puedes preguntarlo así:\n" +
		"- \"Mis fichajes de hoy\"\n" +
		"- \"Fichajes del 14/03/2025\"\n" +
		"- \"Fichajes de todo el mes de marzo\"\n" +
		"- \"¿Quién no ha fichado hoy?\""

	escalationText = "Lo siento, no he podido resolver tu consulta de forma automática. " +
		"He abierto la incidencia %s y el equipo de soporte se pondrá en contacto contigo."

	failureText = "Lo siento, se ha producido un problema al procesar tu consulta. " +
		"He abierto la incidencia %s y el equipo de soporte la revisará lo antes posible."

	exportHint = "Puedes descargar el listado completo con los botones de exportación."
)

// ClarificationText 返回需要补充时间信息时的提示。
func ClarificationText(intent model.Intent) string {
	return clarifyClockText
}

// EscalationText 返回升级为工单时的致歉文本。
func EscalationText(ticketID string) string {
	return fmt.Sprintf(escalationText, ticketID)
}

// FailureText 返回未预期错误时的致歉文本。
func FailureText(ticketID string) string {
	return fmt.Sprintf(failureText, ticketID)
}

type lineFunc func(r model.Row) string

var lineTemplates = map[string]lineFunc{
	"clock_records": func(r model.Row) string {
		return fmt.Sprintf("- %s · %s: entrada %s, salida %s (%.2f h)",
			r.String("work_date"), who(r), orDash(r.String("clock_in")), orDash(r.String("clock_out")), r.Float("hours_worked"))
	},
	"missing_clock_ins": func(r model.Row) string {
		line := fmt.Sprintf("- %s: %s", who(r), statusLabel(r.String("status")))
		if h := r.Float("planned_hours"); h > 0 {
			line += fmt.Sprintf(", %.2f h previstas", h)
		}
		if ex := r.String("explanation"); ex != "" {
			line += " (" + ex + ")"
		}
		return line
	},
	"employee_completeness": func(r model.Row) string {
		ex := r.String("explanation")
		if ex == "" {
			ex = "cuadrante, horario y centro asignados"
		}
		return fmt.Sprintf("- %s: %s", who(r), ex)
	},
	"shift_month": func(r model.Row) string {
		return fmt.Sprintf("- %s: %.2f h planificadas en %d días (%02d/%d)",
			who(r), r.Float("total_hours"), r.Int("worked_days"), r.Int("month"), r.Int("year"))
	},
	"leave_balances": func(r model.Row) string {
		return fmt.Sprintf("- %s %d: generados %.1f, disfrutados %.1f, disponibles %.1f",
			leaveLabel(r.String("leave_type")), r.Int("year"), r.Float("accrued"), r.Float("consumed"), r.Float("remaining"))
	},
	"leave_requests": func(r model.Row) string {
		end := r.String("end_date")
		if end == "" {
			end = "sin fecha de fin"
		}
		return fmt.Sprintf("- %s: %s del %s al %s (%s)",
			who(r), leaveLabel(r.String("leave_type")), r.String("start_date"), end, orDash(r.String("status")))
	},
	"payroll": func(r model.Row) string {
		return fmt.Sprintf("- %02d/%d: bruto %.2f €, neto %.2f €", r.Int("month"), r.Int("year"), r.Float("gross_amount"), r.Float("net_amount"))
	},
	"documents": func(r model.Row) string {
		return fmt.Sprintf("- %s (%s, %s)", orDash(r.String("title")), orDash(r.String("doc_type")), orDash(r.String("issued_at")))
	},
	"knowledge": func(r model.Row) string {
		return fmt.Sprintf("- %s: %s", r.String("title"), truncate(strings.TrimSpace(r.String("body")), 200))
	},
}

var headers = map[string]string{
	"clock_records":         "He encontrado %d fichajes:",
	"missing_clock_ins":     "Hay %d empleados que deberían haber trabajado y no tienen un fichaje válido:",
	"employee_completeness": "Este es el estado de %d empleados:",
	"shift_month":           "Horas planificadas en el cuadrante (%d empleados):",
	"leave_balances":        "Este es tu saldo de permisos (%d registros):",
	"leave_requests":        "He encontrado %d solicitudes de permiso en ese periodo:",
	"payroll":               "Estas son las últimas nóminas (%d):",
	"documents":             "He encontrado %d documentos:",
	"knowledge":             "Esto es lo que he encontrado en la base de conocimiento (%d artículos):",
}

var emptyTexts = map[string]string{
	"clock_records":         "No he encontrado fichajes para esa fecha.",
	"missing_clock_ins":     "Todos los empleados con turno previsto tienen su fichaje registrado.",
	"employee_completeness": "No hay empleados que cumplan ese criterio.",
	"shift_month":           "No hay cuadrante registrado para ese mes.",
	"leave_balances":        "No tengo registrado ningún saldo de permisos para este año.",
	"leave_requests":        "No hay solicitudes de permiso en ese periodo.",
	"payroll":               "No he encontrado nóminas para ese periodo.",
	"documents":             "No he encontrado documentos con ese criterio.",
	"knowledge":             "No he encontrado información sobre ese tema en la base de conocimiento.",
}

// fallbackText 是确定性的逐意图模板，任何输入都返回可用文本。
func fallbackText(kind string, rows []model.Row, summarized bool) string {
	if len(rows) == 0 {
		if t, ok := emptyTexts[kind]; ok {
			return t
		}
		return "No he encontrado datos para tu consulta."
	}

	var b strings.Builder
	if h, ok := headers[kind]; ok {
		b.WriteString(fmt.Sprintf(h, len(rows)))
	} else {
		b.WriteString(fmt.Sprintf("He encontrado %d resultados:", len(rows)))
	}

	line, ok := lineTemplates[kind]
	if !ok {
		line = genericLine
	}
	for i, r := range rows {
		if i == listLines {
			b.WriteString(fmt.Sprintf("\n… y %d más.", len(rows)-listLines))
			break
		}
		b.WriteString("\n")
		b.WriteString(line(r))
	}
	if summarized {
		b.WriteString("\n")
		b.WriteString(exportHint)
	}
	return b.String()
}

func genericLine(r model.Row) string {
	parts := make([]string, 0, len(r))
	for _, k := range sortedKeys(r) {
		if v := r.String(k); v != "" {
			parts = append(parts, k+": "+truncate(v, 80))
		}
	}
	return "- " + strings.Join(parts, ", ")
}

func sortedKeys(r model.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func who(r model.Row) string {
	name, code := r.String("full_name"), r.String("employee_code")
	switch {
	case name != "" && code != "":
		return fmt.Sprintf("%s (%s)", name, code)
	case name != "":
		return name
	case code != "":
		return code
	}
	return "empleado"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func statusLabel(s string) string {
	switch s {
	case "sin_fichaje":
		return "sin fichaje"
	case "fichaje_incompleto":
		return "fichaje incompleto"
	case "sin_asignacion":
		return "sin asignación"
	}
	return s
}

func leaveLabel(t string) string {
	switch model.LeaveType(t) {
	case model.LeaveVacation:
		return "Vacaciones"
	case model.LeavePersonal:
		return "Asuntos propios"
	}
	return orDash(t)
}
