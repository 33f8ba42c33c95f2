package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsDir(t *testing.T) {
	t.Setenv("MIGRATIONS_DIR", "")
	assert.Equal(t, "db/migrations", migrationsDir())

	t.Setenv("MIGRATIONS_DIR", "/custom/migrations")
	assert.Equal(t, "/custom/migrations", migrationsDir())
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("DB_DSN=from_file\n"), 0644))
	t.Setenv("DB_DSN", "from_env")

	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	loadEnvFiles()
	assert.Equal(t, "from_env", os.Getenv("DB_DSN"))
}

func TestGooseArgs(t *testing.T) {
	args, err := gooseArgs("up", "")
	require.NoError(t, err)
	assert.Nil(t, args)

	args, err = gooseArgs("create", "add_loan_notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"add_loan_notes", "sql"}, args)

	_, err = gooseArgs("create", "")
	assert.Error(t, err)

	_, err = gooseArgs("drop", "")
	assert.Error(t, err)
}
