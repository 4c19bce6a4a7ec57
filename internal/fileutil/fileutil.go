package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrExists reports that a destination already holds a file.
var ErrExists = fs.ErrExist

var uploadExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".gif":  {},
}

// IsUploadCandidate reports whether name carries a .jpg or .jpeg extension,
// ignoring case.
func IsUploadCandidate(name string) bool {
	_, ok := uploadExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsImage reports whether name is one of the image types the kiosk clears.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Listing splits a directory's regular files into upload candidates and
// everything else. Both slices are sorted by name.
type Listing struct {
	Candidates []string
	Skipped    []string
}

// ListImports reads dir without recursing. A missing directory yields an
// empty listing.
func ListImports(dir string) (Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, nil
		}
		return Listing{}, fmt.Errorf("read import directory: %w", err)
	}
	var listing Listing
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if IsUploadCandidate(name) {
			listing.Candidates = append(listing.Candidates, name)
		} else {
			listing.Skipped = append(listing.Skipped, name)
		}
	}
	sort.Strings(listing.Candidates)
	sort.Strings(listing.Skipped)
	return listing, nil
}

// CountImports returns how many upload candidates dir holds.
func CountImports(dir string) (int, error) {
	listing, err := ListImports(dir)
	if err != nil {
		return 0, err
	}
	return len(listing.Candidates), nil
}

// ClearImages deletes every regular image file directly inside dir and
// returns how many were removed.
func ClearImages(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read import directory: %w", err)
	}
	removed := 0
	var firstErr error
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsImage(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", entry.Name(), err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// Exists reports whether anything is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// MoveNoReplace moves src to dst, failing with ErrExists instead of
// replacing an existing dst. src is removed on success.
func MoveNoReplace(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil {
		return os.Remove(src)
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("move %s: %w", filepath.Base(dst), ErrExists)
	}
	// Filesystems without hard links fall back to an exclusive-create copy.
	if err := copyExclusive(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("move %s: %w", filepath.Base(dst), ErrExists)
		}
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// Truncate empties the file at path, creating it when absent.
func Truncate(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("truncate %s: %w", path, err)
	}
	return file.Close()
}
