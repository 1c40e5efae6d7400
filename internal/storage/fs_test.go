package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("a2/speaking/fr_paper1.json", strings.NewReader(`{"items":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "a2/speaking/fr_paper1.json", key)

	rc, err := s.Get(key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(b))
}

func TestFSStoreMissingKey(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("nope.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put("", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestFSStoreKeepsKeysInsideBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewFSStore(base)
	require.NoError(t, err)

	p, err := s.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, base))
}
