// Package config loads the structured settings shared by cmd/engine
// and cmd/feeder: bus connection parameters, subjects, and file paths.
//
// Grounded on original_source/src/common/config/config.py (a YAML-
// backed settings singleton) and original_source/src/common/models/
// config.py's field set, reimplemented with gopkg.in/yaml.v3 — already
// a transitive dependency of the teacher's go.mod and named directly
// in the pack's tsfdsong-tradeengin and sujalsin-microCoin manifests.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ReconnectPolicy bounds how the bus client retries a dropped
// connection. Durations are expressed in milliseconds on the wire,
// mirroring original_source's NatsConnectionConfig.
type ReconnectPolicy struct {
	MaxAttempts      int `yaml:"max_attempts"`
	WaitMs           int `yaml:"wait_ms"`
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
}

// Wait returns the pause between reconnect attempts as a Duration.
func (r ReconnectPolicy) Wait() time.Duration {
	return time.Duration(r.WaitMs) * time.Millisecond
}

// ConnectTimeout returns the per-attempt connect timeout as a Duration.
func (r ReconnectPolicy) ConnectTimeout() time.Duration {
	return time.Duration(r.ConnectTimeoutMs) * time.Millisecond
}

// NatsConfig configures the subject-based bus collaborator.
type NatsConfig struct {
	URL           string          `yaml:"url"`
	OrdersSubject string          `yaml:"orders_subject"`
	TradesSubject string          `yaml:"trades_subject"`
	Reconnect     ReconnectPolicy `yaml:"reconnect"`
}

// EngineConfig configures the file-based replay and sink paths.
type EngineConfig struct {
	InputPath  string `yaml:"input_path"`
	OutputPath string `yaml:"output_path"`
}

// Settings is the top-level structured configuration object.
type Settings struct {
	Nats   NatsConfig   `yaml:"nats"`
	Engine EngineConfig `yaml:"engine"`
}

// Default returns the settings used when no file is supplied, mirroring
// original_source's NatsConnectionConfig defaults.
func Default() Settings {
	return Settings{
		Nats: NatsConfig{
			URL:           "nats://127.0.0.1:4222",
			OrdersSubject: "orders.in",
			TradesSubject: "trades.out",
			Reconnect: ReconnectPolicy{
				MaxAttempts:      5,
				WaitMs:           500,
				ConnectTimeoutMs: 2000,
			},
		},
		Engine: EngineConfig{
			InputPath:  "data/orders.jsonl",
			OutputPath: "data/trades.jsonl",
		},
	}
}

// Load reads settings from a YAML file at path, falling back to
// Default() field-by-field for anything the file omits (the file need
// not be complete).
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return settings, nil
}
