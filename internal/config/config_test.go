package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"uploader/internal/config"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSONAppliesDefaultsAndDerivesPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{
  "FTP_URL": "ftp://example.com/photos/",
  "FTP_USERPWD": "kiosk:secret",
  "paths": {"work_dir": "`+dir+`"}
}`)

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.FTPURL != "ftp://example.com/photos/" {
		t.Fatalf("unexpected FTP_URL %q", cfg.FTPURL)
	}
	if cfg.FTPUserPwd != "kiosk:secret" {
		t.Fatalf("unexpected FTP_USERPWD %q", cfg.FTPUserPwd)
	}
	if got, want := cfg.ImportDir(), filepath.Join(dir, "import"); got != want {
		t.Fatalf("import dir = %q, want %q", got, want)
	}
	if got, want := cfg.LedgerPath(), filepath.Join(dir, ".track.txt"); got != want {
		t.Fatalf("ledger path = %q, want %q", got, want)
	}
	if got, want := cfg.LogPath(), filepath.Join(dir, "log.txt"); got != want {
		t.Fatalf("log path = %q, want %q", got, want)
	}
	if cfg.Camera.AcquireAttempts != 5 {
		t.Fatalf("expected default acquire attempts, got %d", cfg.Camera.AcquireAttempts)
	}
	if cfg.Network.ProbeAddress != "8.8.8.8:53" {
		t.Fatalf("unexpected probe address %q", cfg.Network.ProbeAddress)
	}
	if cfg.LoopInterval().Milliseconds() != 250 {
		t.Fatalf("unexpected loop interval %s", cfg.LoopInterval())
	}
	if len(cfg.Camera.EvictProcesses) != 2 {
		t.Fatalf("expected default evict process list, got %v", cfg.Camera.EvictProcesses)
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, _, err := config.Load(filepath.Join(t.TempDir(), "config.json"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "uploader.toml", `
FTP_URL = "sftp://files.example.com/upload/"
FTP_USERPWD = "kiosk:secret"

[paths]
work_dir = "`+dir+`"

[camera]
acquire_attempts = 3

[workflow]
loop_interval_millis = 100
hotplug_enabled = false
`)

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Camera.AcquireAttempts != 3 {
		t.Fatalf("expected acquire attempts 3, got %d", cfg.Camera.AcquireAttempts)
	}
	if cfg.Workflow.HotplugEnabled {
		t.Fatal("expected hotplug disabled")
	}
	if cfg.Workflow.EventIntervalSeconds != 2 {
		t.Fatalf("expected default event interval, got %d", cfg.Workflow.EventIntervalSeconds)
	}
}

func TestLoadFallsBackToEnvironment(t *testing.T) {
	t.Setenv("FTP_URL", "ftp://env.example.com/")
	t.Setenv("FTP_USERPWD", "env:pass")
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"paths": {"work_dir": "`+dir+`"}}`)

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FTPURL != "ftp://env.example.com/" || cfg.FTPUserPwd != "env:pass" {
		t.Fatalf("expected env fallback, got %q / %q", cfg.FTPURL, cfg.FTPUserPwd)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.FTPURL = "ftp://example.com/"
		cfg.FTPUserPwd = "u:p"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing url", func(c *config.Config) { c.FTPURL = "" }, "FTP_URL is required"},
		{"bad scheme", func(c *config.Config) { c.FTPURL = "http://example.com/" }, "unsupported scheme"},
		{"missing host", func(c *config.Config) { c.FTPURL = "ftp:///photos/" }, "host is required"},
		{"missing credentials", func(c *config.Config) { c.FTPUserPwd = "" }, "FTP_USERPWD is required"},
		{"credentials without colon", func(c *config.Config) { c.FTPUserPwd = "user" }, "user:password"},
		{"zero attempts", func(c *config.Config) { c.Camera.AcquireAttempts = 0 }, "acquire_attempts"},
		{"bad probe address", func(c *config.Config) { c.Network.ProbeAddress = "8.8.8.8" }, "probe_address"},
		{"zero loop interval", func(c *config.Config) { c.Workflow.LoopIntervalMillis = 0 }, "loop_interval_millis"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !strings.HasPrefix(cfg.FTPURL, "ftp://") {
		t.Fatalf("unexpected sample FTP_URL %q", cfg.FTPURL)
	}
}

func TestEnsureDirectoriesCreatesImportDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	info, err := os.Stat(cfg.ImportDir())
	if err != nil || !info.IsDir() {
		t.Fatalf("expected import dir, stat err=%v", err)
	}
}
