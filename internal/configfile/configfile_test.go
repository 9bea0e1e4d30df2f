package configfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database != "issuecraft.db" {
		t.Errorf("Database = %q, want issuecraft.db", cfg.Database)
	}
	if cfg.Identity != "" {
		t.Errorf("Identity = %q, want empty", cfg.Identity)
	}
}

func TestLoadSaveRoundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DirName)

	cfg := DefaultConfig()
	cfg.Identity = "alice"
	cfg.LogFile = "debug.log"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() returned nil config")
	}
	if loaded.Database != cfg.Database {
		t.Errorf("Database = %q, want %q", loaded.Database, cfg.Database)
	}
	if loaded.Identity != cfg.Identity {
		t.Errorf("Identity = %q, want %q", loaded.Identity, cfg.Identity)
	}
	if loaded.LogFile != cfg.LogFile {
		t.Errorf("LogFile = %q, want %q", loaded.LogFile, cfg.LogFile)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DirName))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg != nil {
		t.Errorf("Load() = %+v, want nil for missing config", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(ConfigPath(dir), []byte("database: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load() succeeded on malformed YAML; want error")
	}
}

func TestDatabasePathResolution(t *testing.T) {
	cfg := &Config{Database: "issuecraft.db"}
	if got := cfg.DatabasePath("/work/.issuecraft"); got != filepath.Join("/work/.issuecraft", "issuecraft.db") {
		t.Errorf("DatabasePath = %q, want it joined to the config dir", got)
	}

	cfg.Database = ":memory:"
	if got := cfg.DatabasePath("/work/.issuecraft"); got != ":memory:" {
		t.Errorf("DatabasePath = %q, want :memory: passed through", got)
	}

	abs := filepath.Join(string(filepath.Separator), "tmp", "abs.db")
	cfg.Database = abs
	if got := cfg.DatabasePath("/work/.issuecraft"); got != abs {
		t.Errorf("DatabasePath = %q, want absolute path passed through", got)
	}
}
