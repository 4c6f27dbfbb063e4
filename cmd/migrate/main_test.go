package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateChecksum(t *testing.T) {
	sum := calculateChecksum([]byte("SELECT 1;"))

	assert.Len(t, sum, 64)
	assert.Equal(t, sum, calculateChecksum([]byte("SELECT 1;")))
	assert.NotEqual(t, sum, calculateChecksum([]byte("SELECT 2;")))
}

func TestLoadMigrations_SortedByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- "+name), 0o644))
	}

	migrations, err := loadMigrations(dir)

	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001_a.sql", migrations[0].filename)
	assert.Equal(t, "002_b.sql", migrations[1].filename)
}

func TestLoadMigrations_RepositorySchema(t *testing.T) {
	migrations, err := loadMigrations(filepath.Join("..", "..", "migrations"))

	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Contains(t, string(migrations[0].content), "CREATE TABLE IF NOT EXISTS simulation_runs")
}

func TestPendingMigrations(t *testing.T) {
	all := []migration{
		{filename: "001_a.sql", checksum: "aaa"},
		{filename: "002_b.sql", checksum: "bbb"},
	}

	pending, err := pendingMigrations(all, map[string]string{"001_a.sql": "aaa"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "002_b.sql", pending[0].filename)

	_, err = pendingMigrations(all, map[string]string{"001_a.sql": "changed"})
	assert.Error(t, err)
}
