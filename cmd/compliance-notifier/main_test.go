package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/compliance-notifier/internal/engine"
)

func TestRun_Usage(t *testing.T) {
	assert.ErrorIs(t, run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"frobnicate"}), errUsage)
}

func TestRun_SeedTickStatsExport(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "compliance.db")
	t.Setenv("COMPLIANCE_DATABASE_DSN", dbPath)
	t.Setenv("COMPLIANCE_LOG_LEVEL", "error")

	ctx := context.Background()
	require.NoError(t, run(ctx, []string{"-config", configPath, "init-config", "-defaults"}))
	_, err := os.Stat(configPath)
	require.NoError(t, err)

	require.NoError(t, run(ctx, []string{"-config", configPath, "seed"}))
	require.NoError(t, run(ctx, []string{"-config", configPath, "tick"}))
	require.NoError(t, run(ctx, []string{"-config", configPath, "stats"}))

	out := filepath.Join(dir, "audit.xlsx")
	require.NoError(t, run(ctx, []string{"-config", configPath, "export-audit", out}))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.ErrorIs(t, run(ctx, []string{"-config", configPath, "export-audit"}), errUsage)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, engine.Report{
		StartedAt: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		Created:   4,
		Escalated: 1,
	})
	out := buf.String()
	assert.Contains(t, out, "2026-03-05T09:00:00Z")
	assert.Contains(t, out, "escalated")
	assert.Contains(t, out, "4")
}

func TestRun_PasswordCommandsNeedKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	for _, cmd := range []string{"set-db-password", "clear-db-password"} {
		err := run(context.Background(), []string{"-config", configPath, cmd})
		assert.ErrorIs(t, err, errPasswordKeyUnset, cmd)
	}
}
