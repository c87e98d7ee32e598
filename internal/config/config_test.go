package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			NodeURL:    "http://localhost:8545",
			PrivateKey: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		},
		Contracts: ContractsConfig{
			SourceAddress: "0x1111111111111111111111111111111111111111",
			TargetAddress: "0x2222222222222222222222222222222222222222",
		},
		Migration: MigrationConfig{
			BalancePageSize: 50,
			ImportPageSize:  25,
			EventName:       "VestingEntryCreated",
		},
		Journal: JournalConfig{
			Enabled:          true,
			Type:             "sqlite",
			ConnectionString: "./data/migration.db",
		},
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
contracts:
  source_address: "0x1111111111111111111111111111111111111111"
  target_address: "0x2222222222222222222222222222222222222222"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Migration.BalancePageSize != 50 {
		t.Errorf("Expected default balance page size 50, got %d", cfg.Migration.BalancePageSize)
	}
	if cfg.Migration.ImportPageSize != 25 {
		t.Errorf("Expected default import page size 25, got %d", cfg.Migration.ImportPageSize)
	}
	if cfg.Migration.EventName != "VestingEntryCreated" {
		t.Errorf("Expected default event name, got %q", cfg.Migration.EventName)
	}
	if cfg.Journal.Type != "sqlite" {
		t.Errorf("Expected default journal type sqlite, got %q", cfg.Journal.Type)
	}
	if cfg.Chain.NodeURL == "" {
		t.Error("Expected default node URL, got empty string")
	}
	t.Logf("✓ Defaults applied on top of a minimal config file")
}

func TestLoadFileValuesOverrideDefaults(t *testing.T) {
	path := writeConfigFile(t, `
migration:
  balance_page_size: 10
  import_page_size: 5
  dry_run: true
contracts:
  source_address: "0x1111111111111111111111111111111111111111"
  target_address: "0x2222222222222222222222222222222222222222"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Migration.BalancePageSize != 10 || cfg.Migration.ImportPageSize != 5 {
		t.Errorf("File values not applied: balance=%d import=%d",
			cfg.Migration.BalancePageSize, cfg.Migration.ImportPageSize)
	}
	if !cfg.Migration.DryRun {
		t.Error("Expected dry_run true from file")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CHAIN_NODE_URL", "http://node.example:8545")
	t.Setenv("DATABASE_URL", "/var/lib/migrator/journal.db")

	path := writeConfigFile(t, `
contracts:
  source_address: "0x1111111111111111111111111111111111111111"
  target_address: "0x2222222222222222222222222222222222222222"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Chain.NodeURL != "http://node.example:8545" {
		t.Errorf("CHAIN_NODE_URL not applied, got %q", cfg.Chain.NodeURL)
	}
	if cfg.Journal.ConnectionString != "/var/lib/migrator/journal.db" {
		t.Errorf("DATABASE_URL not applied, got %q", cfg.Journal.ConnectionString)
	}
	t.Logf("✓ Environment variables override file values")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing node URL", func(c *Config) { c.Chain.NodeURL = "" }, "node URL"},
		{"bad source address", func(c *Config) { c.Contracts.SourceAddress = "not-an-address" }, "source contract"},
		{"bad target address", func(c *Config) { c.Contracts.TargetAddress = "0x123" }, "target contract"},
		{"zero balance page size", func(c *Config) { c.Migration.BalancePageSize = 0 }, "balance page size"},
		{"negative import page size", func(c *Config) { c.Migration.ImportPageSize = -1 }, "import page size"},
		{"missing event name", func(c *Config) { c.Migration.EventName = "" }, "event name"},
		{"no key without dry run", func(c *Config) { c.Chain.PrivateKey = "" }, "signing key"},
		{"dry run without key", func(c *Config) {
			c.Chain.PrivateKey = ""
			c.Migration.DryRun = true
		}, ""},
		{"journal enabled without connection", func(c *Config) { c.Journal.ConnectionString = "" }, "journal connection"},
		{"journal disabled without connection", func(c *Config) {
			c.Journal.Enabled = false
			c.Journal.ConnectionString = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
