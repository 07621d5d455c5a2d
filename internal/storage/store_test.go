package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveAndResolve(t *testing.T) {
	store, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	relPath, size, err := store.Save("turnover", "report.pdf", strings.NewReader("pdf content"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("pdf content")), size)
	assert.Equal(t, "turnover", filepath.Dir(relPath))
	assert.True(t, strings.HasSuffix(relPath, "-report.pdf"))
	assert.True(t, store.Exists(relPath))

	content, err := os.ReadFile(store.FullPath(relPath))
	require.NoError(t, err)
	assert.Equal(t, "pdf content", string(content))

	back, err := store.Rel(store.FullPath(relPath))
	require.NoError(t, err)
	assert.Equal(t, relPath, back)

	assert.False(t, store.Exists("turnover/missing.pdf"))
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	first, _, err := store.Save("turnover", "report.pdf", strings.NewReader("a"))
	require.NoError(t, err)
	second, _, err := store.Save("turnover", "report.pdf", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, store.Exists(first))
	assert.True(t, store.Exists(second))
}

func TestSaveStripsDirectoryFromOriginalName(t *testing.T) {
	store, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	relPath, _, err := store.Save("turnover", "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "turnover", filepath.Dir(relPath))
	assert.True(t, strings.HasSuffix(relPath, "-passwd"))
}
