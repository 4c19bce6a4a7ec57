// Package transfer delivers one local file to the configured remote endpoint.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"uploader/internal/logging"
)

// Target is a fully resolved destination for one upload.
type Target struct {
	Scheme   string
	Addr     string
	Path     string
	User     string
	Password string
}

// Redacted renders the target without credentials.
func (t Target) Redacted() string {
	return t.Scheme + "://" + t.Addr + t.Path
}

// Session is an authenticated connection able to store files.
type Session interface {
	Store(ctx context.Context, remotePath string, r io.Reader) error
	Close() error
}

// Dialer opens sessions for one URL scheme.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Session, error)
}

// Option configures a Client.
type Option func(*Client)

// WithDialer registers the dialer used for scheme, replacing the default.
func WithDialer(scheme string, dialer Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialers[strings.ToLower(scheme)] = dialer
		}
	}
}

// WithTimeout bounds one upload including connection setup.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithKnownHosts enables host key verification for sftp:// endpoints.
func WithKnownHosts(path string) Option {
	return func(c *Client) {
		c.knownHosts = strings.TrimSpace(path)
	}
}

// Client uploads files under a base address with fixed credentials.
type Client struct {
	base       *url.URL
	user       string
	password   string
	timeout    time.Duration
	knownHosts string
	dialers    map[string]Dialer
	logger     *slog.Logger
}

// New parses baseURL (ftp:// or sftp://) and userPwd ("user:password").
func New(baseURL, userPwd string, logger *slog.Logger, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Hostname() == "" {
		return nil, errors.New("base url: host is required")
	}
	user, password, _ := strings.Cut(userPwd, ":")
	c := &Client{
		base:     parsed,
		user:     user,
		password: password,
		timeout:  60 * time.Second,
		dialers:  map[string]Dialer{},
		logger:   logging.NewComponentLogger(logger, "transfer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, ok := c.dialers["ftp"]; !ok {
		c.dialers["ftp"] = ftpDialer{timeout: c.timeout}
	}
	if _, ok := c.dialers["sftp"]; !ok {
		c.dialers["sftp"] = sftpDialer{timeout: c.timeout, knownHosts: c.knownHosts, logger: c.logger}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if _, ok := c.dialers[scheme]; !ok {
		return nil, fmt.Errorf("base url: unsupported scheme %q", parsed.Scheme)
	}
	return c, nil
}

// Destination resolves remoteName against the base address. The name is
// appended to the base path verbatim.
func (c *Client) Destination(remoteName string) Target {
	scheme := strings.ToLower(c.base.Scheme)
	addr := c.base.Host
	if c.base.Port() == "" {
		addr = net.JoinHostPort(c.base.Hostname(), defaultPort(scheme))
	}
	return Target{
		Scheme:   scheme,
		Addr:     addr,
		Path:     c.base.Path + remoteName,
		User:     c.user,
		Password: c.password,
	}
}

// Upload sends localPath to the base address plus remoteName. It reports
// false on any failure and never modifies the local file. Every attempt is
// logged.
func (c *Client) Upload(ctx context.Context, localPath, remoteName string) bool {
	target := c.Destination(remoteName)
	attrs := []logging.Attr{
		logging.String(logging.FieldPath, localPath),
		logging.String(logging.FieldDestination, target.Redacted()),
	}
	started := time.Now()
	if err := c.upload(ctx, localPath, target); err != nil {
		logging.ErrorWithContext(c.logger, "upload failed", "upload_failed",
			append(attrs,
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "file stays queued and is retried on the next sweep"),
			)...,
		)
		return false
	}
	c.logger.Info("upload complete", logging.Args(append(attrs, logging.Duration("elapsed", time.Since(started)))...)...)
	return true
}

func (c *Client) upload(ctx context.Context, localPath string, target Target) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer file.Close()

	dialer, ok := c.dialers[target.Scheme]
	if !ok {
		return fmt.Errorf("no dialer for scheme %q", target.Scheme)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	session, err := dialer.Dial(ctx, target)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}
	storeErr := session.Store(ctx, target.Path, file)
	closeErr := session.Close()
	if storeErr != nil {
		return fmt.Errorf("store: %w", storeErr)
	}
	if closeErr != nil {
		// The file is already stored; sending it again would duplicate it.
		logging.WarnWithContext(c.logger, "closing upload session failed", "upload_close_failed",
			logging.String(logging.FieldDestination, target.Redacted()),
			logging.Error(closeErr),
			logging.String(logging.FieldImpact, "the upload still counts as delivered"),
		)
	}
	return nil
}

func defaultPort(scheme string) string {
	if scheme == "sftp" {
		return "22"
	}
	return "21"
}
