package rbac

import (
	"math/rand"
	"strings"
	"testing"

	"hr-assistant-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy([]string{"supervisor", "Admin", "manager", "jefe de servicio", "developer"})
	require.NoError(t, err)
	return p
}

func TestAccessLevel_ElevatedRoles(t *testing.T) {
	p := newTestPolicy(t)
	for _, role := range []string{"supervisor", "SUPERVISOR", "  admin ", "Manager", "Jefe  de  Servicio", "developer"} {
		assert.Equal(t, FullAccess, p.AccessLevel(role), role)
	}
}

func TestAccessLevel_FailClosed(t *testing.T) {
	p := newTestPolicy(t)
	for _, role := range []string{"", "   ", "empleado", "supervisor2", "super visor", "adm", "level:full_access", "role:admin", "*", "' OR 1=1 --"} {
		assert.Equal(t, OwnDataOnly, p.AccessLevel(role), role)
	}

	var nilPolicy *Policy
	assert.Equal(t, OwnDataOnly, nilPolicy.AccessLevel("admin"))
}

func TestScopingPredicate_OwnDataForFuzzedRoles(t *testing.T) {
	p := newTestPolicy(t)
	elevated := map[string]bool{"supervisor": true, "admin": true, "manager": true, "jefe de servicio": true, "developer": true}

	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzÁÉÍÓÚñ _-'%;0123456789")
	for i := 0; i < 500; i++ {
		n := rng.Intn(16)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		role := b.String()
		if elevated[roleSlug(role)] {
			continue
		}
		pred := p.ScopingPredicate("E042", role, "c.employee_code")
		assert.Equal(t, "c.employee_code = ?", pred.SQL, "role %q", role)
		assert.Equal(t, []interface{}{"E042"}, pred.Args, "role %q", role)
	}
}

func TestScopingPredicate_FullAccess(t *testing.T) {
	p := newTestPolicy(t)
	pred := p.ScopingPredicate("E042", "supervisor", "c.employee_code")
	assert.Equal(t, "1 = 1", pred.SQL)
	assert.Empty(t, pred.Args)
}

func TestScope_RejectsInvalidColumn(t *testing.T) {
	s := Scope{UserID: "E1", Level: OwnDataOnly}
	assert.Equal(t, "1 = 0", s.Predicate("code; DROP TABLE employees").SQL)
	assert.Equal(t, "1 = 0", s.Audience("").SQL)
}

func TestScope_Audience(t *testing.T) {
	p := newTestPolicy(t)
	own := p.ScopeFor(model.User{ID: "E1", Role: "empleado"})
	pred := own.Audience("a.audience")
	assert.Equal(t, "a.audience = ?", pred.SQL)
	assert.Equal(t, []interface{}{"all"}, pred.Args)

	full := p.ScopeFor(model.User{ID: "E1", Role: "admin"})
	assert.True(t, full.FullAccess())
	assert.Equal(t, "1 = 1", full.Audience("a.audience").SQL)
}
