package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"todo_api/internal/config"
	"todo_api/internal/db/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DBConfig{
		Host: "db", Port: "5432", User: "todo", Password: "pw", Name: "todo", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5432 user=todo password=pw dbname=todo sslmode=disable", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "00001_init.sql")
	assert.Contains(t, files, "00002_task_activity.sql")
	assert.Contains(t, files, "00003_task_title_text.sql")

	up, err := fs.ReadFile(migrations.Migrations, "00003_task_title_text.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "ALTER COLUMN title TYPE TEXT")
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return errors.New("boom")
	}

	err := Migrate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migrations")
	assert.Equal(t, ".", gotDir)
}

func TestMigrate_Success(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error { return nil }

	assert.NoError(t, Migrate(context.Background(), nil))
}
