package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.json
var sampleConfig string

// ErrMissingConfig reports that no configuration file exists at the resolved path.
var ErrMissingConfig = errors.New("configuration file not found")

// Paths contains runtime directory overrides. Every runtime file lives
// under WorkDir, which defaults to the process working directory.
type Paths struct {
	WorkDir string `json:"work_dir" toml:"work_dir"`
}

// Camera contains settings for the gphoto2-backed device session.
type Camera struct {
	Binary                string   `json:"binary" toml:"binary"`
	Port                  string   `json:"port" toml:"port"`
	AcquireAttempts       int      `json:"acquire_attempts" toml:"acquire_attempts"`
	AcquireBackoffSeconds int      `json:"acquire_backoff_seconds" toml:"acquire_backoff_seconds"`
	EventTimeoutMillis    int      `json:"event_timeout_millis" toml:"event_timeout_millis"`
	CommandTimeoutSeconds int      `json:"command_timeout_seconds" toml:"command_timeout_seconds"`
	EvictProcesses        []string `json:"evict_processes" toml:"evict_processes"`
}

// Network contains connectivity probe and transfer settings.
type Network struct {
	ProbeAddress           string `json:"probe_address" toml:"probe_address"`
	ProbeIntervalSeconds   int    `json:"probe_interval_seconds" toml:"probe_interval_seconds"`
	ProbeTimeoutSeconds    int    `json:"probe_timeout_seconds" toml:"probe_timeout_seconds"`
	WirelessPath           string `json:"wireless_path" toml:"wireless_path"`
	SignalIntervalSeconds  int    `json:"signal_interval_seconds" toml:"signal_interval_seconds"`
	TransferTimeoutSeconds int    `json:"transfer_timeout_seconds" toml:"transfer_timeout_seconds"`
	KnownHostsFile         string `json:"known_hosts_file" toml:"known_hosts_file"`
}

// Workflow contains coordinator cadences and optional subsystems.
type Workflow struct {
	LoopIntervalMillis    int  `json:"loop_interval_millis" toml:"loop_interval_millis"`
	EventIntervalSeconds  int  `json:"event_interval_seconds" toml:"event_interval_seconds"`
	RescanIntervalSeconds int  `json:"rescan_interval_seconds" toml:"rescan_interval_seconds"`
	UploadRetrySeconds    int  `json:"upload_retry_seconds" toml:"upload_retry_seconds"`
	ScreenRefreshMillis   int  `json:"screen_refresh_millis" toml:"screen_refresh_millis"`
	HotplugEnabled        bool `json:"hotplug_enabled" toml:"hotplug_enabled"`
	HistoryEnabled        bool `json:"history_enabled" toml:"history_enabled"`
	HistoryRetention      int  `json:"history_retention" toml:"history_retention"`
}

// Config encapsulates all configuration values for the uploader.
//
// FTP_URL and FTP_USERPWD keep their upper-case keys so existing kiosk
// config.json files load unchanged. The remaining sections are optional.
type Config struct {
	FTPURL     string   `json:"FTP_URL" toml:"FTP_URL"`
	FTPUserPwd string   `json:"FTP_USERPWD" toml:"FTP_USERPWD"`
	Paths      Paths    `json:"paths" toml:"paths"`
	Camera     Camera   `json:"camera" toml:"camera"`
	Network    Network  `json:"network" toml:"network"`
	Workflow   Workflow `json:"workflow" toml:"workflow"`
}

// DefaultConfigPath returns the absolute path of ./config.json.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, normalizes, and validates a configuration file. A
// missing file is an error: the kiosk cannot deliver anything without an
// endpoint.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, resolvedPath, fmt.Errorf("%w: %s", ErrMissingConfig, resolvedPath)
		}
		return nil, resolvedPath, fmt.Errorf("read config: %w", err)
	}

	if err := decode(resolvedPath, data, &cfg); err != nil {
		return nil, resolvedPath, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolvedPath, err
	}
	return &cfg, resolvedPath, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	return decoder.Decode(cfg)
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	return expandPath(path)
}

// ImportDir is the flat directory fetched images are written to.
func (c *Config) ImportDir() string {
	return filepath.Join(c.Paths.WorkDir, defaultImportDirName)
}

// LedgerPath is the append-only record of uploaded filenames.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.WorkDir, defaultLedgerFileName)
}

// LogPath is the mirrored text log.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.WorkDir, defaultLogFileName)
}

// LockPath guards against a second kiosk process in the same directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, defaultLockFileName)
}

// SocketPath is the unix socket serving the status RPC.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.WorkDir, defaultSocketFileName)
}

// HistoryPath is the sqlite journal of import and upload events.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.WorkDir, defaultHistoryFileName)
}

// CameraBinary returns the gphoto2 executable name.
func (c *Config) CameraBinary() string {
	if strings.TrimSpace(c.Camera.Binary) == "" {
		return defaultCameraBinary
	}
	return c.Camera.Binary
}

// AcquireBackoff is the unit of the linear acquire backoff.
func (c *Config) AcquireBackoff() time.Duration {
	return time.Duration(c.Camera.AcquireBackoffSeconds) * time.Second
}

// EventTimeout bounds one WaitForEvent call.
func (c *Config) EventTimeout() time.Duration {
	return time.Duration(c.Camera.EventTimeoutMillis) * time.Millisecond
}

// CameraCommandTimeout bounds one gphoto2 invocation.
func (c *Config) CameraCommandTimeout() time.Duration {
	return time.Duration(c.Camera.CommandTimeoutSeconds) * time.Second
}

// ProbeInterval is the connectivity poll cadence.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Network.ProbeIntervalSeconds) * time.Second
}

// ProbeTimeout bounds one connectivity probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeoutSeconds) * time.Second
}

// SignalInterval is the wireless link poll cadence.
func (c *Config) SignalInterval() time.Duration {
	return time.Duration(c.Network.SignalIntervalSeconds) * time.Second
}

// TransferTimeout bounds one upload.
func (c *Config) TransferTimeout() time.Duration {
	return time.Duration(c.Network.TransferTimeoutSeconds) * time.Second
}

// LoopInterval is the coordinator sleep between iterations.
func (c *Config) LoopInterval() time.Duration {
	return time.Duration(c.Workflow.LoopIntervalMillis) * time.Millisecond
}

// EventInterval is the minimum wall-clock spacing between device event waits.
func (c *Config) EventInterval() time.Duration {
	return time.Duration(c.Workflow.EventIntervalSeconds) * time.Second
}

// RescanInterval is the longest gap between full camera walks while a
// device stays attached. Zero walks the camera on every iteration.
func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.Workflow.RescanIntervalSeconds) * time.Second
}

// UploadRetry is how long a file whose transfer failed waits before the
// sweep tries it again.
func (c *Config) UploadRetry() time.Duration {
	return time.Duration(c.Workflow.UploadRetrySeconds) * time.Second
}

// ScreenRefresh is the operator screen redraw cadence.
func (c *Config) ScreenRefresh() time.Duration {
	return time.Duration(c.Workflow.ScreenRefreshMillis) * time.Millisecond
}

// EnsureDirectories creates the import directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.ImportDir(), 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.ImportDir(), err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
