package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/config"
)

func TestLoad_MissingPathReturnsDefaults(t *testing.T) {
	settings, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), settings)
}

func TestLoad_NonexistentFileReturnsDefaults(t *testing.T) {
	settings, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), settings)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
nats:
  url: "nats://broker:4222"
  orders_subject: "custom.orders"
  trades_subject: "custom.trades"
  reconnect:
    max_attempts: 10
    wait_ms: 250
    connect_timeout_ms: 1000
engine:
  input_path: "in.jsonl"
  output_path: "out.jsonl"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", settings.Nats.URL)
	assert.Equal(t, "custom.orders", settings.Nats.OrdersSubject)
	assert.Equal(t, 10, settings.Nats.Reconnect.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, settings.Nats.Reconnect.Wait())
	assert.Equal(t, "in.jsonl", settings.Engine.InputPath)
}
