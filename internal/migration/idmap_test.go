package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectIDMap(t *testing.T) {
	m := NewProjectIDMap()
	assert.Zero(t, m.Len())

	m.Set("p1", "t1")
	m.Set("p2", "t2")
	m.Set("p1", "t1b")

	got, ok := m.Lookup("p1")
	assert.True(t, ok)
	assert.Equal(t, "t1b", got)
	assert.True(t, m.Has("p2"))
	assert.False(t, m.Has("p3"))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"p1", "p2"}, m.Sources())

	id, mapped := m.Resolve("p3")
	assert.False(t, mapped)
	assert.Equal(t, "p3", id, "unmapped ids fall back to the source id")

	sources := m.Sources()
	sources[0] = "p9"
	assert.False(t, m.Has("p9"))
	assert.Equal(t, []string{"p1", "p2"}, m.Sources(), "Sources returns a copy")
}
