package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEndpoint(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEndpoint() error {
	if c.FTPURL == "" {
		return errors.New("FTP_URL is required (set it in config.json or the FTP_URL env var)")
	}
	parsed, err := url.Parse(c.FTPURL)
	if err != nil {
		return fmt.Errorf("FTP_URL: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "ftp", "sftp":
	default:
		return fmt.Errorf("FTP_URL: unsupported scheme %q (want ftp:// or sftp://)", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return errors.New("FTP_URL: host is required")
	}
	if c.FTPUserPwd == "" {
		return errors.New("FTP_USERPWD is required (format user:password)")
	}
	if !strings.Contains(c.FTPUserPwd, ":") {
		return errors.New("FTP_USERPWD must be formatted as user:password")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.AcquireAttempts < 1 {
		return errors.New("camera.acquire_attempts must be at least 1")
	}
	if c.Camera.AcquireBackoffSeconds < 0 {
		return errors.New("camera.acquire_backoff_seconds must be non-negative")
	}
	if c.Camera.EventTimeoutMillis <= 0 {
		return errors.New("camera.event_timeout_millis must be positive")
	}
	if c.Camera.CommandTimeoutSeconds <= 0 {
		return errors.New("camera.command_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if _, _, err := net.SplitHostPort(c.Network.ProbeAddress); err != nil {
		return fmt.Errorf("network.probe_address: %w", err)
	}
	if c.Network.ProbeIntervalSeconds <= 0 {
		return errors.New("network.probe_interval_seconds must be positive")
	}
	if c.Network.ProbeTimeoutSeconds <= 0 {
		return errors.New("network.probe_timeout_seconds must be positive")
	}
	if c.Network.SignalIntervalSeconds <= 0 {
		return errors.New("network.signal_interval_seconds must be positive")
	}
	if c.Network.TransferTimeoutSeconds <= 0 {
		return errors.New("network.transfer_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.LoopIntervalMillis <= 0 {
		return errors.New("workflow.loop_interval_millis must be positive")
	}
	if c.Workflow.EventIntervalSeconds <= 0 {
		return errors.New("workflow.event_interval_seconds must be positive")
	}
	if c.Workflow.RescanIntervalSeconds < 0 {
		return errors.New("workflow.rescan_interval_seconds must be non-negative")
	}
	if c.Workflow.UploadRetrySeconds < 0 {
		return errors.New("workflow.upload_retry_seconds must be non-negative")
	}
	if c.Workflow.ScreenRefreshMillis <= 0 {
		return errors.New("workflow.screen_refresh_millis must be positive")
	}
	if c.Workflow.HistoryRetention < 0 {
		return errors.New("workflow.history_retention must be non-negative")
	}
	return nil
}
