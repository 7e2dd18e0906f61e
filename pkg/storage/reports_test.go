package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportDirSave(t *testing.T) {
	dir, err := NewReportDir(filepath.Join(t.TempDir(), "reports"))
	require.NoError(t, err)

	path, err := dir.Save("engagement_summary_20240321_1200.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, dir.Path("engagement_summary_20240321_1200.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReportDirRejectsNestedNames(t *testing.T) {
	dir, err := NewReportDir(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../escape.csv", `sub\file.csv`} {
		_, err := dir.Save(name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestReportDirPrune(t *testing.T) {
	dir, err := NewReportDir(t.TempDir())
	require.NoError(t, err)

	oldPath, err := dir.Save("old.pdf", []byte("%PDF-"))
	require.NoError(t, err)
	_, err = dir.Save("new.pdf", []byte("%PDF-"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	removed, err := dir.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, removed)
	_, err = os.Stat(dir.Path("new.pdf"))
	assert.NoError(t, err)
}
