package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
	}{
		{"001_initial_schema.sql", "001", "initial_schema"},
		{"002_reminder_log_indexes.sql", "002", "reminder_log_indexes"},
		{"003.sql", "003", "003"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.version, extractVersionFromFilename(tt.filename))
			assert.Equal(t, tt.name, extractNameFromFilename(tt.filename))
		})
	}
}

func TestListMigrationFilesSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_later.sql", "002_second.sql", "001_first.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	files, err := listMigrationFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "001", files[0].Version)
	assert.Equal(t, "second", files[1].Name)
	assert.Equal(t, filepath.Join(dir, "010_later.sql"), files[2].FilePath)
}

func TestListShippedMigrations(t *testing.T) {
	files, err := listMigrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "initial_schema", files[0].Name)
}
