package config

import (
	"os"
	"strconv"
)

// FromEnv overlays DROSERA_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("DROSERA_POOL"); v != "" {
		cfg.Pool = v
	}
	if v := os.Getenv("DROSERA_MONITORED"); v != "" {
		cfg.Monitored = v
	}
	if v := os.Getenv("DROSERA_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("DROSERA_TRIGGER"); v != "" {
		cfg.Trigger = v
	}
	if v := os.Getenv("DROSERA_THRESHOLD_BP"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ThresholdBp = n
		}
	}
	if v := os.Getenv("DROSERA_RESPONSE_RULE"); v != "" {
		cfg.ResponseRule = v
	}
	if v := os.Getenv("DROSERA_FEED_URL"); v != "" {
		cfg.Operator.FeedURL = v
	}
	if v := os.Getenv("DROSERA_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Operator.PollIntervalMs = n
		}
	}
	if v := os.Getenv("DROSERA_WALLET_URL"); v != "" {
		cfg.Wallet.URL = v
	}
	if v := os.Getenv("DROSERA_DISPATCH_RETRY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Operator.DispatchRetryMs = n
		}
	}
}
