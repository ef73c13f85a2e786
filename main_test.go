package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_MigrateUsersAndStats(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "blog.db"))
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SSM_PARAMETER_PATH", "")

	out, err := runCLI(t, "migrate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "migrations applied")

	out, err = runCLI(t, "users", "add", "--email", "Admin@Example.com", "--password", "long enough", "--name", "Ada")
	require.NoError(t, err, out)
	assert.Contains(t, out, "created admin@example.com")

	_, err = runCLI(t, "users", "add", "--email", "admin@example.com", "--password", "long enough")
	assert.Error(t, err)

	_, err = runCLI(t, "users", "add", "--email", "short@example.com", "--password", "short")
	assert.Error(t, err)

	out, err = runCLI(t, "users", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "admin@example.com")

	out, err = runCLI(t, "stats")
	require.NoError(t, err, out)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(0), stats["totalBlogs"])

	out, err = runCLI(t, "gen", "--report-only")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Total mismatched columns across all tables: 0")
}

func TestCLI_UnknownDatabaseType(t *testing.T) {
	t.Setenv("DB_TYPE", "oracle")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SSM_PARAMETER_PATH", "")

	_, err := runCLI(t, "migrate")
	assert.Error(t, err)
}
