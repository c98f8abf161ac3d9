package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	s := New()

	require.NoError(t, s.Set("user_drawings", `[{"uid":"a"}]`))

	v, ok, err := s.Get("user_drawings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"uid":"a"}]`, v)
}

func TestStore_GetMissing(t *testing.T) {
	s := New()

	_, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetOverwrites(t *testing.T) {
	s := New()

	require.NoError(t, s.Set("k", "one"))
	require.NoError(t, s.Set("k", "two"))

	v, ok, _ := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestStore_Delete(t *testing.T) {
	s := New()

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Delete("k"))

	_, ok, _ := s.Get("k")
	assert.False(t, ok)

	// deleting again is not an error
	require.NoError(t, s.Delete("k"))
}
