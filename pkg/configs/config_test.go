package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/filehost/pkg/configs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return dir
}

func TestInitConfigDefaults(t *testing.T) {
	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()

	if cfg.Server.Port != configs.DefaultPort {
		t.Errorf("port = %d", cfg.Server.Port)
	}

	if cfg.Storage.MaxUploadMB != configs.DefaultMaxUploadMB {
		t.Errorf("max_upload_mb = %d", cfg.Storage.MaxUploadMB)
	}

	if got := cfg.Storage.MaxUploadBytes(); got != 2048*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", got)
	}

	if cfg.Storage.ReapInterval != time.Hour {
		t.Errorf("reap_interval = %s", cfg.Storage.ReapInterval)
	}

	if want := filepath.Join(configs.DefaultStorageDir, configs.DefaultSQLiteFileName); cfg.DB.Path != want {
		t.Errorf("db path = %q, want %q", cfg.DB.Path, want)
	}

	if got := cfg.Storage.FileURL("abc"); got != "http://localhost:8110/files/abc" {
		t.Errorf("FileURL = %q", got)
	}
}

func TestInitConfigFile(t *testing.T) {
	dir := writeConfig(t, `
storage:
  dir: /srv/files
  max_upload_mb: 10
  base_url: https://files.example.com/
  reap_interval: 15m
db:
  type: sqlite
  path: /var/lib/filehost/meta.db
`)

	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()

	if cfg.Storage.Dir != "/srv/files" || cfg.Storage.MaxUploadMB != 10 {
		t.Errorf("storage = %+v", cfg.Storage)
	}

	if cfg.Storage.BaseURL != "https://files.example.com" {
		t.Errorf("base_url = %q, trailing slash should be trimmed", cfg.Storage.BaseURL)
	}

	if cfg.Storage.ReapInterval != 15*time.Minute {
		t.Errorf("reap_interval = %s", cfg.Storage.ReapInterval)
	}

	if cfg.DB.Path != "/var/lib/filehost/meta.db" {
		t.Errorf("db path = %q", cfg.DB.Path)
	}

	if used := configs.GetViper().ConfigFileUsed(); used != filepath.Join(dir, "config.yaml") {
		t.Errorf("config file used = %q", used)
	}
}

func TestLegacyEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DIR", "/data/legacy")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("BASE_URL", "http://legacy.example")

	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()

	if cfg.Storage.Dir != "/data/legacy" || cfg.Storage.MaxUploadMB != 5 || cfg.Storage.BaseURL != "http://legacy.example" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}

	if cfg.DB.Path != filepath.Join("/data/legacy", configs.DefaultSQLiteFileName) {
		t.Fatalf("db path = %q", cfg.DB.Path)
	}
}

func TestPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("FILEHOST_STORAGE_MAX_UPLOAD_MB", "7")
	t.Setenv("DB_PATH", "/tmp/legacy.db")

	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()

	if cfg.Storage.MaxUploadMB != 7 {
		t.Errorf("max_upload_mb = %d, want 7", cfg.Storage.MaxUploadMB)
	}

	if cfg.DB.Path != "/tmp/legacy.db" {
		t.Errorf("db path = %q", cfg.DB.Path)
	}
}

func TestInitConfigRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"backend":  "storage:\n  backend: ftp\n",
		"max size": "storage:\n  max_upload_mb: 0\n",
		"kv type":  "kv:\n  type: etcd\n",
	} {
		t.Run(name, func(t *testing.T) {
			if err := configs.InitConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
