package formatter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	enabled bool
	text    string
	err     error
	block   bool
	calls   int
	last    llm.Request
}

func (f *fakeLLM) Enabled() bool { return f.enabled }

func (f *fakeLLM) Complete(ctx context.Context, r llm.Request) (string, error) {
	f.calls++
	f.last = r
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeSnap struct {
	id    string
	err   error
	saved int
}

func (s *fakeSnap) Save(_ context.Context, _ model.Intent, rows []model.Row) (string, error) {
	s.saved = len(rows)
	return s.id, s.err
}

func clockRows(n int) []model.Row {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{
			"employee_code": fmt.Sprintf("E%d", i+1),
			"full_name":     fmt.Sprintf("Empleado %d", i+1),
			"work_date":     "2025-03-14",
			"clock_in":      "09:00",
			"clock_out":     "17:00",
			"hours_worked":  8.0,
		}
	}
	return rows
}

func input(rows []model.Row, conf float64) Input {
	status := query.StatusOK
	if len(rows) == 0 {
		status = query.StatusEmpty
	}
	return Input{
		Intent:     model.IntentClockRecords,
		Message:    "fichajes de hoy",
		User:       model.User{ID: "E1", Name: "Ana"},
		Result:     query.Result{Status: status, Rows: rows, Kind: "clock_records"},
		Confidence: conf,
	}
}

func TestFormat_SummaryThreshold(t *testing.T) {
	client := &fakeLLM{enabled: true, text: "Resumen listo."}
	snap := &fakeSnap{id: "exp-1"}
	f := NewFormatter(client, snap, Options{})

	out := f.Format(context.Background(), input(clockRows(11), 0.75))
	assert.True(t, out.Summarized)
	require.Len(t, out.Actions, 3)
	assert.Equal(t, 11, snap.saved)
	for i, want := range []string{"xlsx", "txt", "docx"} {
		a := out.Actions[i]
		assert.Equal(t, "export", a.Type)
		assert.Equal(t, want, a.Payload["format"])
		assert.Equal(t, "clock_records", a.Payload["intent"])
		assert.Equal(t, "exp-1", a.Payload["export_id"])
	}
	assert.Contains(t, client.last.User, "listado completo")
	assert.Contains(t, client.last.User, `"muestras"`)

	snap.saved = 0
	out = f.Format(context.Background(), input(clockRows(10), 0.75))
	assert.False(t, out.Summarized)
	assert.Empty(t, out.Actions)
	assert.Zero(t, snap.saved)
	assert.NotContains(t, client.last.User, "listado completo")
}

func TestFormat_ExportWithoutSnapshot(t *testing.T) {
	f := NewFormatter(nil, &fakeSnap{err: errors.New("minio down")}, Options{})
	out := f.Format(context.Background(), input(clockRows(12), 0.6))
	require.Len(t, out.Actions, 3)
	for _, a := range out.Actions {
		_, ok := a.Payload["export_id"]
		assert.False(t, ok)
	}
	assert.Contains(t, out.Text, exportHint)
	assert.Contains(t, out.Text, "… y 2 más.")
}

func TestFormat_FallbackOnModelFailures(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
	}{
		{"nil client", nil},
		{"disabled", &fakeLLM{enabled: false, text: "x"}},
		{"empty", &fakeLLM{enabled: true, err: llm.ErrEmptyResponse}},
		{"error", &fakeLLM{enabled: true, err: errors.New("boom")}},
		{"timeout", &fakeLLM{enabled: true, block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(tt.client, nil, Options{DataTimeout: 20 * time.Millisecond})
			start := time.Now()
			out := f.Format(context.Background(), input(clockRows(2), 0.6))
			assert.Less(t, time.Since(start), time.Second)
			assert.False(t, out.AIFormatted)
			assert.Equal(t, 0.6, out.Confidence)
			assert.True(t, strings.HasPrefix(out.Text, "He encontrado 2 fichajes:"))
			assert.Contains(t, out.Text, "Empleado 1 (E1)")
			assert.NotContains(t, out.Text, "boom")
		})
	}
}

func TestFormat_ConfidenceBoost(t *testing.T) {
	f := NewFormatter(&fakeLLM{enabled: true, text: "ok"}, nil, Options{})

	out := f.Format(context.Background(), input(clockRows(1), 0.75))
	assert.True(t, out.AIFormatted)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)

	out = f.Format(context.Background(), input(clockRows(1), 0.98))
	assert.Equal(t, 1.0, out.Confidence)
}

func TestFormat_EmptyResultSkipsModel(t *testing.T) {
	client := &fakeLLM{enabled: true, text: "no"}
	f := NewFormatter(client, nil, Options{})
	out := f.Format(context.Background(), input(nil, 0.9))
	assert.Zero(t, client.calls)
	assert.Equal(t, emptyTexts["clock_records"], out.Text)
	assert.Equal(t, 0.9, out.Confidence)
}

func TestConversationalAndClarification(t *testing.T) {
	f := NewFormatter(&fakeLLM{enabled: true, block: true}, nil, Options{ChatTimeout: 10 * time.Millisecond})
	out := f.Conversational(context.Background(), Input{Message: "hola", Confidence: 0.1})
	assert.Equal(t, greetingText, out.Text)
	assert.Equal(t, 0.1, out.Confidence)

	f = NewFormatter(&fakeLLM{enabled: true, text: "¡Hola!"}, nil, Options{})
	out = f.Conversational(context.Background(), Input{Message: "hola", Confidence: 0.5})
	assert.Equal(t, "¡Hola!", out.Text)
	assert.InDelta(t, 0.55, out.Confidence, 1e-9)

	c := f.Clarification(Input{Intent: model.IntentClockRecords, Confidence: 0.6})
	assert.Contains(t, c.Text, "Fichajes del 14/03/2025")
	assert.Equal(t, 0.6, c.Confidence)
}

func TestFallbackText_Kinds(t *testing.T) {
	missing := []model.Row{{
		"employee_code": "E3", "full_name": "Luis Pérez", "status": "sin_asignacion",
		"planned_hours": 0.0, "explanation": "falta cuadrante, falta horario, falta centro de trabajo",
	}}
	text := fallbackText("missing_clock_ins", missing, false)
	assert.Contains(t, text, "Luis Pérez (E3): sin asignación (falta cuadrante")

	balances := []model.Row{{"leave_type": "vacation", "year": 2025, "accrued": 22.0, "consumed": 10.0, "remaining": 12.0}}
	assert.Contains(t, fallbackText("leave_balances", balances, false), "Vacaciones 2025: generados 22.0, disfrutados 10.0, disponibles 12.0")

	generic := fallbackText("other", []model.Row{{"b": "2", "a": "1"}}, false)
	assert.Contains(t, generic, "- a: 1, b: 2")
	assert.Equal(t, "No he encontrado datos para tu consulta.", fallbackText("other", nil, false))
}

func TestBuildSummary(t *testing.T) {
	rows := []model.Row{
		{"status": "sin_fichaje", "notes": ""},
		{"status": "sin_fichaje"},
		{"status": "sin_asignacion"},
		{"status": "fichaje_incompleto", "body": strings.Repeat("a", 400)},
		{"status": "sin_fichaje"},
		{"status": "sin_fichaje"},
	}
	s := buildSummary("missing_clock_ins", rows)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, "status", s.GroupBy)
	assert.Equal(t, map[string]int{"sin_fichaje": 4, "sin_asignacion": 1, "fichaje_incompleto": 1}, s.Counts)
	require.Len(t, s.Samples, sampleRows)
	assert.Equal(t, "sin_asignacion", s.Samples[1]["status"])
	assert.Equal(t, "fichaje_incompleto", s.Samples[2]["status"])
	_, hasEmpty := s.Samples[0]["notes"]
	assert.False(t, hasEmpty)
	assert.Len(t, []rune(s.Samples[2]["body"].(string)), maxFieldChars+1)
	assert.Equal(t, []string{"sin_fichaje: 4", "fichaje_incompleto: 1", "sin_asignacion: 1"}, sortedCounts(s.Counts))
}
