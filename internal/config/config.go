package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// NameRegex validates queue and consumer names.
	NameRegex string `json:"nameRegex" yaml:"nameRegex"`
	// LockWaitMs bounds how long a write transaction waits for the writer
	// slot before failing with a retryable conflict.
	LockWaitMs int `json:"lockWaitMs" yaml:"lockWaitMs"`
	// QueueDefaults captures per-queue baseline behavior.
	QueueDefaults QueueDefaults `json:"queueDefaults" yaml:"queueDefaults"`
}

// QueueDefaults captures per-queue baseline limits and policies.
type QueueDefaults struct {
	// RegisterStart is the default start policy for new broadcast
	// consumers: "tail" or "zero".
	RegisterStart string `json:"registerStart" yaml:"registerStart"`
	// MaxTxnRetries bounds conflict retries per operation.
	MaxTxnRetries int `json:"maxTxnRetries" yaml:"maxTxnRetries"`
	// RetryBackoffMs is the base backoff between conflict retries.
	RetryBackoffMs int `json:"retryBackoffMs" yaml:"retryBackoffMs"`
	// ReclaimChunk bounds deletions per reclaim transaction.
	ReclaimChunk int `json:"reclaimChunk" yaml:"reclaimChunk"`
	// ReclaimEveryOps runs a bounded reclaim pass every N mutations
	// (0 disables the opportunistic trigger).
	ReclaimEveryOps int `json:"reclaimEveryOps" yaml:"reclaimEveryOps"`
	// PayloadMaxBytes rejects larger payloads (0 disables).
	PayloadMaxBytes int `json:"payloadMaxBytes" yaml:"payloadMaxBytes"`
	// MaxEntries bounds live entries per queue (0 disables).
	MaxEntries uint64 `json:"maxEntries" yaml:"maxEntries"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		NameRegex:  `^[a-zA-Z0-9._-]{1,128}$`,
		LockWaitMs: 5000,
		QueueDefaults: QueueDefaults{
			RegisterStart:   "tail",
			MaxTxnRetries:   5,
			RetryBackoffMs:  5,
			ReclaimChunk:    1024,
			ReclaimEveryOps: 0,
			PayloadMaxBytes: 1 << 20,
			MaxEntries:      0,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If
// path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported extension %q (use .json, .yaml, .yml)", ext)
	}
	return cfg, nil
}
