package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCookieSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	payload := `[{"name":"session","value":"abc"},{"name":"","value":"ignored"},{"name":"cf","value":"xyz"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	source := NewFileCookieSource(path)
	cookies := source.Cookies()
	assert.Equal(t, map[string]string{"session": "abc", "cf": "xyz"}, cookies)
}

func TestFileCookieSourceMemoizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","value":"1"}]`), 0644))

	source := NewFileCookieSource(path)
	first := source.Cookies()

	// Rewriting the file within the TTL does not change the cached result.
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","value":"2"}]`), 0644))
	second := source.Cookies()
	assert.Equal(t, first, second)
}

func TestFileCookieSourceMissingFile(t *testing.T) {
	source := NewFileCookieSource(filepath.Join(t.TempDir(), "nope.json"))
	assert.Empty(t, source.Cookies())
}

func TestFileCookieSourceMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	source := NewFileCookieSource(path)
	assert.Empty(t, source.Cookies())
}
