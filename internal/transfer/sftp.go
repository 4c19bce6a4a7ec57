package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"uploader/internal/logging"
)

type sftpDialer struct {
	timeout    time.Duration
	knownHosts string
	logger     *slog.Logger
}

func (d sftpDialer) Dial(ctx context.Context, target Target) (Session, error) {
	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.Password(target.Password)},
		HostKeyCallback: hostKeys,
		Timeout:         d.timeout,
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", target.Addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", target.Addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, target.Addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	return &sftpSession{ssh: sshClient, sftp: sftpClient}, nil
}

func (d sftpDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.knownHosts == "" {
		logging.WarnWithContext(d.logger, "sftp host key not verified", "sftp_insecure_host_key",
			logging.String(logging.FieldErrorHint, "set network.known_hosts_file"),
			logging.String(logging.FieldImpact, "server identity is not checked"),
		)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(d.knownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}
	return callback, nil
}

type sftpSession struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (s *sftpSession) Store(ctx context.Context, remotePath string, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		done <- s.store(remotePath, r)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = s.ssh.Close()
		<-done
		return ctx.Err()
	}
}

func (s *sftpSession) store(remotePath string, r io.Reader) error {
	file, err := s.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", remotePath, err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", remotePath, err)
	}
	return file.Close()
}

func (s *sftpSession) Close() error {
	var firstErr error
	if err := s.sftp.Close(); err != nil {
		firstErr = err
	}
	if err := s.ssh.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
