package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPragmasApplied verifies that essential PRAGMAs are set on pooled
// connections.
func TestPragmasApplied(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var synchronous int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&synchronous))
	assert.Equal(t, 1, synchronous) // NORMAL

	var tempStore int
	require.NoError(t, db.QueryRow("PRAGMA temp_store").Scan(&tempStore))
	assert.Equal(t, 2, tempStore) // MEMORY

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestLatestMigrationVersion(t *testing.T) {
	v, err := LatestMigrationVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)

	status, err := db.GetMigrationStatus(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, MigrationStatus{CurrentVersion: 2, LatestVersion: 2}, status)
	assert.False(t, status.Pending())

	require.NoError(t, db.MigrateDown(migrationsFS))
	v, dirty, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	_, err = db.Exec(`SELECT 1 FROM walls`)
	assert.Error(t, err, "walls should be gone after rolling back")

	require.NoError(t, db.MigrateUp(migrationsFS))
	v, _, err = db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	require.NoError(t, db.MigrateTo(migrationsFS, 1))
	status, err = db.GetMigrationStatus(migrationsFS)
	require.NoError(t, err)
	assert.True(t, status.Pending())
}

func TestOpenDB_LeavesSchemaAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)
	assert.Equal(t, path, db.Path())
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"up", []string{"up"}, "Current version: 2", false},
		{"status", []string{"status"}, "Latest version: 2", false},
		{"down", []string{"down"}, "Current version: 1", false},
		{"version", []string{"version", "2"}, "Migrated to version 2", false},
		{"force", []string{"force", "2"}, "forced to 2", false},
		{"help", []string{"help"}, "Usage: twin migrate", false},
		{"missing action", nil, "Usage: twin migrate", true},
		{"bad version", []string{"version", "x"}, "", true},
		{"unknown", []string{"sideways"}, "Usage: twin migrate", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunMigrateCommand(tt.args, path, &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
