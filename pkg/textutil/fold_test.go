package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"  Jefe   de Sección ":  "jefe de seccion",
		"¿Quién NO ha fichado?": "¿quien no ha fichado?",
		"":                      "",
		"Nóminas\tde  MARZO":    "nominas de marzo",
	}
	for in, want := range cases {
		assert.Equal(t, want, Fold(in), in)
	}
}
