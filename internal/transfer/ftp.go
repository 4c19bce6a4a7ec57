package transfer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

type ftpDialer struct {
	timeout time.Duration
}

func (d ftpDialer) Dial(ctx context.Context, target Target) (Session, error) {
	conn, err := ftp.Dial(target.Addr, ftp.DialWithTimeout(d.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", target.Addr, err)
	}
	if err := conn.Login(target.User, target.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return &ftpSession{conn: conn}, nil
}

type ftpSession struct {
	conn *ftp.ServerConn
}

func (s *ftpSession) Store(ctx context.Context, remotePath string, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		done <- s.conn.Stor(ftpPath(remotePath), r)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Quit unblocks the pending STOR.
		_ = s.conn.Quit()
		<-done
		return ctx.Err()
	}
}

func (s *ftpSession) Close() error {
	return s.conn.Quit()
}

// ftpPath converts a URL path to an FTP path. Like curl, a single leading
// slash is relative to the login directory; "//dir" is absolute.
func ftpPath(urlPath string) string {
	return strings.TrimPrefix(urlPath, "/")
}
