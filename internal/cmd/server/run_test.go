package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/wizzybrown/Drosera/internal/config"
	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
)

func TestGetenvDefault(t *testing.T) {
	_ = os.Setenv("DROSERA_TEST_VAR", "env_value")
	t.Cleanup(func() { _ = os.Unsetenv("DROSERA_TEST_VAR") })
	if v := getenvDefault("DROSERA_TEST_VAR", "default"); v != "env_value" {
		t.Errorf("set var: got %s", v)
	}
	if v := getenvDefault("DROSERA_TEST_VAR_UNSET", "default"); v != "default" {
		t.Errorf("unset var: got %s", v)
	}
}

func TestDataDirStoreSubdirectory(t *testing.T) {
	opts := Options{DataDir: "/tmp/drosera"}
	storeDir := filepath.Join(opts.DataDir, "store")
	if storeDir != "/tmp/drosera/store" {
		t.Errorf("store dir = %s", storeDir)
	}
}

func TestRunRejectsIncompleteConfig(t *testing.T) {
	opts := Options{
		DataDir:  t.TempDir(),
		HTTPAddr: ":0",
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfgpkg.Default(), // no identities
	}
	if err := Run(context.Background(), opts); err == nil {
		t.Fatalf("expected config resolution error")
	}
}

// TestRunIntegration starts the full server and relies on context timeout
// to shut it down.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := cfgpkg.Default()
	cfg.Pool = "0x00000000000000000000000000000000000000bb"
	cfg.Monitored = "0x00000000000000000000000000000000000000aa"
	cfg.Owner = "0x0000000000000000000000000000000000000001"
	cfg.Trigger = "0x0000000000000000000000000000000000000002"

	opts := Options{
		DataDir:       t.TempDir(),
		HTTPAddr:      ":0",
		Fsync:         pebblestore.FsyncModeNever,
		FsyncInterval: time.Millisecond,
		Config:        cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Run(ctx, opts)
	if err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
