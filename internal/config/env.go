package config

import (
	"os"
	"strconv"
)

// FromEnv overlays FLUME_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FLUME_NAME_REGEX"); v != "" {
		cfg.NameRegex = v
	}
	if v := os.Getenv("FLUME_LOCK_WAIT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LockWaitMs = n
		}
	}
	if v := os.Getenv("FLUME_REGISTER_START"); v != "" {
		cfg.QueueDefaults.RegisterStart = v
	}
	if v := os.Getenv("FLUME_MAX_TXN_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDefaults.MaxTxnRetries = n
		}
	}
	if v := os.Getenv("FLUME_RETRY_BACKOFF_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDefaults.RetryBackoffMs = n
		}
	}
	if v := os.Getenv("FLUME_RECLAIM_CHUNK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDefaults.ReclaimChunk = n
		}
	}
	if v := os.Getenv("FLUME_RECLAIM_EVERY_OPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDefaults.ReclaimEveryOps = n
		}
	}
	if v := os.Getenv("FLUME_PAYLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDefaults.PayloadMaxBytes = n
		}
	}
	if v := os.Getenv("FLUME_MAX_ENTRIES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.QueueDefaults.MaxEntries = n
		}
	}
}
