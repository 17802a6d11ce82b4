package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	appDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "config.toml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Setenv("MODLIST_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	writeConfig(t, `
token = "file-token"
query = "topic:custom"
workers = 4
`)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Token != "file-token" {
		t.Errorf("token = %q", cfg.Token)
	}
	if cfg.Query != "topic:custom" {
		t.Errorf("query = %q", cfg.Query)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d", cfg.Workers)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	writeConfig(t, `token = "file-token"`)
	t.Setenv("GITHUB_TOKEN", "generic-token")
	t.Setenv("MODLIST_GITHUB_TOKEN", "specific-token")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Token != "specific-token" {
		t.Errorf("token = %q, want the app-specific env var to win", cfg.Token)
	}
}

func TestLoadConfig_MissingFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MODLIST_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Query != DefaultQuery {
		t.Errorf("query = %q, want default", cfg.Query)
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	writeConfig(t, `token = [broken`)
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestValidateForCrawl(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{Token: "t", Query: "q"}, ""},
		{"missing token", Config{Query: "q"}, "token"},
		{"nothing to crawl", Config{Token: "t"}, "nothing to crawl"},
		{"negative workers", Config{Token: "t", Query: "q", Workers: -1}, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validateForCrawl()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
