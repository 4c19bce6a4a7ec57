package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEndpoint()
	c.normalizeCamera()
	if err := c.normalizeNetwork(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	workDir := strings.TrimSpace(c.Paths.WorkDir)
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("paths.work_dir: resolve working directory: %w", err)
		}
		workDir = cwd
	}
	expanded, err := expandPath(workDir)
	if err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	c.Paths.WorkDir = expanded
	return nil
}

func (c *Config) normalizeEndpoint() {
	c.FTPURL = strings.TrimSpace(c.FTPURL)
	if c.FTPURL == "" {
		if value, ok := os.LookupEnv("FTP_URL"); ok {
			c.FTPURL = strings.TrimSpace(value)
		}
	}
	c.FTPUserPwd = strings.TrimSpace(c.FTPUserPwd)
	if c.FTPUserPwd == "" {
		if value, ok := os.LookupEnv("FTP_USERPWD"); ok {
			c.FTPUserPwd = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeCamera() {
	c.Camera.Binary = strings.TrimSpace(c.Camera.Binary)
	if c.Camera.Binary == "" {
		c.Camera.Binary = defaultCameraBinary
	}
	c.Camera.Port = strings.TrimSpace(c.Camera.Port)
	names := c.Camera.EvictProcesses[:0]
	for _, name := range c.Camera.EvictProcesses {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	c.Camera.EvictProcesses = names
}

func (c *Config) normalizeNetwork() error {
	c.Network.ProbeAddress = strings.TrimSpace(c.Network.ProbeAddress)
	if c.Network.ProbeAddress == "" {
		c.Network.ProbeAddress = defaultProbeAddress
	}
	c.Network.WirelessPath = strings.TrimSpace(c.Network.WirelessPath)
	if c.Network.WirelessPath == "" {
		c.Network.WirelessPath = defaultWirelessPath
	}
	if strings.TrimSpace(c.Network.KnownHostsFile) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Network.KnownHostsFile))
		if err != nil {
			return fmt.Errorf("network.known_hosts_file: %w", err)
		}
		c.Network.KnownHostsFile = expanded
	}
	return nil
}
