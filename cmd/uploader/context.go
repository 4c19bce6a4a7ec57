package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"uploader/internal/config"
	"uploader/internal/ipc"
	"uploader/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, err := config.Load(path)
		c.configPath = resolved
		if err != nil {
			if errors.Is(err, config.ErrMissingConfig) {
				err = fmt.Errorf("%w (create one with `uploader config init`)", err)
			}
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logConfigFailure appends a config load error to log.txt beside the config
// file so an unattended kiosk leaves a trace. Nothing is written when that
// directory does not exist.
func (c *commandContext) logConfigFailure(err error) {
	if c.configPath == "" {
		return
	}
	dir := filepath.Dir(c.configPath)
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		return
	}
	fallback := config.Default()
	fallback.Paths.WorkDir = dir
	logger, logErr := logging.New(logging.Options{Level: "error", OutputPaths: []string{fallback.LogPath()}})
	if logErr != nil {
		return
	}
	logging.NewComponentLogger(logger, "uploader").Error("configuration load failed", logging.Args(
		logging.String(logging.FieldPath, c.configPath),
		logging.Error(err),
	)...)
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	socket := cfg.SocketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to kiosk: socket %s not found; start the kiosk with `uploader`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to kiosk: socket %s refused the connection; verify the kiosk is running", socket)
	default:
		return fmt.Errorf("connect to kiosk: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
