package sitemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	p, ok := Resolve("le tableau de bord")
	require.True(t, ok)
	assert.Equal(t, "/dashboard", p.Path)

	p, ok = Resolve("mes taches")
	require.True(t, ok)
	assert.Equal(t, "tasks", p.Key)

	_, ok = Resolve("la lune")
	assert.False(t, ok)
}

func TestForPath(t *testing.T) {
	t.Parallel()

	p, ok := ForPath("/projects/42")
	require.True(t, ok)
	assert.Equal(t, "projects", p.Key)

	_, ok = ForPath("/unknown")
	assert.False(t, ok)
}
