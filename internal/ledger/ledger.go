// Package ledger persists the names of files already delivered to the
// remote endpoint.
//
// The backing store is a plain text file with one filename per line. It is
// only ever appended to, or truncated wholesale by Reset. Duplicate lines are
// harmless: lookups scan linearly and stop at the first match.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ledger is a mutex-guarded append-only record of uploaded filenames.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// Open returns a ledger backed by path. The file is not created until the
// first MarkUploaded call.
func Open(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

// IsUploaded reports whether filename has been recorded. A missing or
// unreadable ledger means nothing has been uploaded yet.
func (l *Ledger) IsUploaded(filename string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	found := false
	_ = l.scan(func(line string) bool {
		if line == filename {
			found = true
			return false
		}
		return true
	})
	return found
}

// MarkUploaded appends filename to the ledger exactly as given, so a later
// IsUploaded with the same string matches. Calling it twice for the same name
// writes a duplicate line.
func (l *Ledger) MarkUploaded(filename string) error {
	name := filename
	if strings.TrimSpace(name) == "" {
		return errors.New("ledger: empty filename")
	}
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("ledger: filename %q contains a line break", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger: ensure directory: %w", err)
		}
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open for append: %w", err)
	}
	if _, err := file.WriteString(name + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("ledger: append %s: %w", name, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("ledger: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}

// Count returns the number of non-empty lines, duplicates included.
func (l *Ledger) Count() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	err := l.scan(func(string) bool {
		count++
		return true
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return count, err
}

// Entries returns every recorded name in file order.
func (l *Ledger) Entries() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []string
	err := l.scan(func(line string) bool {
		entries = append(entries, line)
		return true
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// Reset truncates the ledger so every local file becomes eligible again.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: truncate: %w", err)
	}
	return file.Close()
}

// scan calls visit for each non-empty line until visit returns false.
// Callers must hold l.mu.
func (l *Ledger) scan(visit func(string) bool) error {
	file, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if !visit(line) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ledger: read: %w", err)
	}
	return nil
}
