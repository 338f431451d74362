package database

import (
	"path/filepath"
	"testing"

	"whereismypet/internal/config"
	"whereismypet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{DBHost: "db", DBPort: "5433", DBUser: "pets", DBPassword: "pw", DBName: "catalog"}
	assert.Equal(t, "host=db port=5433 user=pets password=pw dbname=catalog sslmode=disable", PostgresDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestConnect_SQLiteMigratesEveryModel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
	}

	db, err := Connect(cfg)
	require.NoError(t, err)

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.Migrator().HasColumn(&models.Post{}, "location_city"))
	assert.True(t, db.Migrator().HasColumn(&models.Post{}, "view_count"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, sqlDB.Close())
}
