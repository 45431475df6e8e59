package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"github.com/n3node/core/internal/testutil"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) failed: %v", dir, err)
	}
}

func TestLoadDefault(t *testing.T) {
	viper.Reset()
	chdir(t, "../../cmd/n3node")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.ID != "n3node-mainnet" {
		t.Fatalf("unexpected network id: %s", cfg.Network.ID)
	}
	if cfg.Ledger.MempoolCapacity != 50000 {
		t.Fatalf("expected mempool capacity 50000, got %d", cfg.Ledger.MempoolCapacity)
	}
	if cfg.P2P.Magic != 860833102 {
		t.Fatalf("expected p2p magic 860833102, got %d", cfg.P2P.Magic)
	}
}

func TestLoadSandboxOverride(t *testing.T) {
	viper.Reset()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()
	if err := os.Mkdir(sb.Path("config"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	data := []byte("network:\n  id: sandbox\np2p:\n  max_peers: 7\n")
	if err := sb.WriteFile("config/default.yaml", data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	chdir(t, sb.Root)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.ID != "sandbox" {
		t.Fatalf("expected network id sandbox, got %s", cfg.Network.ID)
	}
	if cfg.P2P.MaxPeers != 7 {
		t.Fatalf("expected max_peers 7, got %d", cfg.P2P.MaxPeers)
	}
}

func TestLoadFromEnvUsesEnvVariable(t *testing.T) {
	viper.Reset()
	chdir(t, "../../cmd/n3node")
	os.Unsetenv("N3_ENV")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Network.ID != "n3node-mainnet" {
		t.Fatalf("unexpected network id: %s", cfg.Network.ID)
	}
}
