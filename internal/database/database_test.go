package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/models"
)

func TestConnect(t *testing.T) {
	// memory DB
	db, err := Connect(config.Config{DatabaseDriver: "sqlite", DatabasePath: "file::memory:?cache=shared"})
	require.NoError(t, err)
	assert.NotNil(t, db)

	// file DB
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err = Connect(config.Config{DatabaseDriver: "sqlite", DatabasePath: dbPath})
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.ActivityLog{}))
	assert.True(t, db.Migrator().HasTable(&models.Employee{}))
	assert.True(t, db.Migrator().HasTable("employee_positions"))
	assert.FileExists(t, dbPath)
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(config.Config{DatabaseDriver: "mssql"})
	assert.Error(t, err)
}

func TestDialector_Postgres(t *testing.T) {
	d, err := Dialector(config.Config{DatabaseDriver: "postgres", DatabaseDSN: "host=localhost user=szbi dbname=szbi"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
