// Package export writes and reads the identifier hand-off files consumed by
// later detail passes: newline-delimited UTF-8, one identifier per line.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteIdentifiers writes ids to path, dropping blanks and repeats while
// keeping first-seen order. The file is replaced atomically. It returns the
// number of identifiers written.
func WriteIdentifiers(path string, ids []string) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("creating export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("creating export file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	n, err := writeUnique(tmp, ids)
	if err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error wins
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error wins
		return 0, fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("replacing %s: %w", path, err)
	}
	return n, nil
}

func writeUnique(w io.Writer, ids []string) (int, error) {
	bw := bufio.NewWriter(w)
	seen := make(map[string]struct{}, len(ids))
	n := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := bw.WriteString(id + "\n"); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// ReadIdentifiers reads the identifiers in path, skipping blank lines.
func ReadIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("identifier file %s: %w", path, err)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ids, nil
}

// FileName returns the export file name for a kind and month, e.g.
// order_numbers_01_2025.txt.
func FileName(kind string, month, year int) string {
	return fmt.Sprintf("%s_%02d_%04d.txt", kind, month, year)
}
