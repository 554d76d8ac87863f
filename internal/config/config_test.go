package config

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	poolHex      = "0x00000000000000000000000000000000000000bb"
	monitoredHex = "0x00000000000000000000000000000000000000aa"
	ownerHex     = "0x0000000000000000000000000000000000000001"
	triggerHex   = "0x0000000000000000000000000000000000000002"
)

func completeConfig() Config {
	cfg := Default()
	cfg.Pool = poolHex
	cfg.Monitored = monitoredHex
	cfg.Owner = ownerHex
	cfg.Trigger = triggerHex
	return cfg
}

func TestDefaultsCarrySubscriptionSet(t *testing.T) {
	cfg := Default()
	if cfg.Events.Inflow.Signature != DefaultInflowSignature {
		t.Fatalf("inflow default missing")
	}
	if cfg.ThresholdBp != 5000 {
		t.Fatalf("threshold default: %d", cfg.ThresholdBp)
	}
}

func TestResolveRequiresIdentities(t *testing.T) {
	cfg := Default()
	if _, err := cfg.Resolve(); err == nil {
		t.Fatalf("expected error without identities")
	}
	cfg = completeConfig()
	r, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Trap.Pool != r.Pool || r.Trap.Monitored != r.Monitored {
		t.Fatalf("trap config not wired from identities")
	}
	if r.Trap.Inflow.Topic == r.Trap.Outflow.Topic {
		t.Fatalf("event topics not distinct")
	}
}

func TestResolveRejectsNullIdentity(t *testing.T) {
	cfg := completeConfig()
	cfg.Owner = "0x0000000000000000000000000000000000000000"
	if _, err := cfg.Resolve(); err == nil {
		t.Fatalf("null owner accepted")
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drosera.json")
	body := `{"pool":"` + poolHex + `","monitored":"` + monitoredHex + `","thresholdBp":3000}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool != poolHex || cfg.ThresholdBp != 3000 {
		t.Fatalf("json not applied: %+v", cfg)
	}
	// Defaults must survive partial files.
	if cfg.Events.Sync.Signature != DefaultSyncSignature {
		t.Fatalf("defaults lost on load")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drosera.yaml")
	body := "pool: \"" + poolHex + "\"\nthresholdBp: 7500\noperator:\n  pollIntervalMs: 1000\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool != poolHex || cfg.ThresholdBp != 7500 || cfg.Operator.PollIntervalMs != 1000 {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("DROSERA_POOL", poolHex)
	t.Setenv("DROSERA_THRESHOLD_BP", "6000")
	t.Setenv("DROSERA_POLL_INTERVAL_MS", "500")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.Pool != poolHex || cfg.ThresholdBp != 6000 || cfg.Operator.PollIntervalMs != 500 {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
}
