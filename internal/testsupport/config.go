package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"uploader/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose working directory is a fresh temp dir.
// The endpoint points at a local address nothing listens on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.FTPURL = "ftp://127.0.0.1:2121/incoming/"
	cfgVal.FTPUserPwd = "kiosk:secret"
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Network.ProbeAddress = "127.0.0.1:9"
	cfgVal.Network.WirelessPath = filepath.Join(base, "wireless")
	cfgVal.Workflow.LoopIntervalMillis = 10
	cfgVal.Workflow.HotplugEnabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Paths.WorkDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}
	return builder.cfg
}

// WithEndpoint overrides FTP_URL and FTP_USERPWD.
func WithEndpoint(url, userPwd string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FTPURL = url
		b.cfg.FTPUserPwd = userPwd
	}
}

// WithHistory enables the journal.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.HistoryEnabled = true
	}
}

// WithoutHistory disables the journal.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.HistoryEnabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, gphoto2 and nmcli are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"gphoto2", "nmcli"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
