package intent

import (
	"testing"
	"time"

	"hr-assistant-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

func newTestClassifier(t *testing.T) Classifier {
	t.Helper()
	c, err := NewClassifier(nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return c
}

func TestClassify_Intents(t *testing.T) {
	c := newTestClassifier(t)
	tests := []struct {
		text   string
		intent model.Intent
	}{
		{"¿Cuáles son mis fichajes de hoy?", model.IntentClockRecords},
		{"¿Quién no ha fichado hoy?", model.IntentClockRecords},
		{"¿Cuántas horas tengo en el cuadrante de marzo?", model.IntentRoster},
		{"¿Cuántos días de vacaciones me quedan?", model.IntentLeave},
		{"Empleados sin cuadrante ni horario", model.IntentEmployeeRoster},
		{"Quiero ver mi nómina de febrero", model.IntentPayroll},
		{"Necesito mi contrato", model.IntentDocuments},
		{"¿Cómo solicito un cambio de turno?", model.IntentProcedures},
		{"Quiero reportar una incidencia", model.IntentIncident},
		{"Hola, buenos días", model.IntentUnknown},
		{"", model.IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := c.Classify(tt.text)
			assert.Equal(t, tt.intent, res.Intent)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestClassify_ConfidenceSteps(t *testing.T) {
	c := newTestClassifier(t)

	unknown := c.Classify("buenas tardes")
	assert.InDelta(t, 0.1, unknown.Confidence, 1e-9)

	one := c.Classify("mis fichajes")
	assert.Equal(t, 1, one.Matches)
	assert.False(t, one.Compound)
	assert.InDelta(t, 0.6, one.Confidence, 1e-9)

	two := c.Classify("fichajes y horas trabajadas")
	assert.Equal(t, 2, two.Matches)
	assert.InDelta(t, 0.75, two.Confidence, 1e-9)

	three := c.Classify("fichajes, marcaje y horas trabajadas")
	assert.InDelta(t, 0.9, three.Confidence, 1e-9)

	compound := c.Classify("¿quién no ha fichado?")
	assert.True(t, compound.Compound)
	assert.InDelta(t, 0.7, compound.Confidence, 1e-9)

	capped := c.Classify("¿quién no ha fichado? fichajes, marcaje, horas trabajadas")
	assert.InDelta(t, 1.0, capped.Confidence, 1e-9)
}

func TestClassify_CompoundFavoursEmployeeRosterOverLeave(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("empleados de vacaciones sin horario")
	assert.Equal(t, model.IntentEmployeeRoster, res.Intent)
	assert.True(t, res.Compound)
}

func TestClassify_TieKeepsFirstDiscovered(t *testing.T) {
	c := newTestClassifier(t)
	// fichaje (clock_records) y cuadrante (roster) puntúan igual.
	res := c.Classify("fichaje cuadrante")
	assert.Equal(t, model.IntentClockRecords, res.Intent)
}

func TestNewClassifier_RejectsBadRules(t *testing.T) {
	_, err := NewClassifier([]byte("intents:\n  - intent: nope\n    phrases: [{text: x, weight: 1}]\n"))
	assert.Error(t, err)

	_, err = NewClassifier([]byte(`
intents:
  - intent: leave
    phrases: [{text: vacaciones, weight: 1}]
compound:
  - name: not_bool
    intent: leave
    bonus: 1
    when: 'text + "x"'
`))
	assert.Error(t, err)
}

func TestHasTemporalPhrase(t *testing.T) {
	c := newTestClassifier(t)
	assert.True(t, c.HasTemporalPhrase("mis fichajes de HOY"))
	assert.True(t, c.HasTemporalPhrase("fichajes de este mes"))
	assert.True(t, c.HasTemporalPhrase("lo de ayer"))
	assert.False(t, c.HasTemporalPhrase("mis fichajes"))
}

func TestClassify_SingularMissingPhrasing(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify("¿Quién debería haber trabajado hoy según el cuadrante y no tiene fichaje?")
	assert.Equal(t, model.IntentClockRecords, res.Intent)
	assert.True(t, res.Entities.MissingClockIns)
	assert.Equal(t, model.FilterNone, res.Entities.ListFilter)
}
