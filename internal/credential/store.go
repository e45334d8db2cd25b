package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists credentials. Load on an unknown platform creates, persists
// and returns an empty credential.
type Store interface {
	Load(ctx context.Context, p Platform) (Credential, error)
	Save(ctx context.Context, c Credential) error
	Delete(ctx context.Context, p Platform) error
}

// FileStore keeps one JSON document per platform at <dir>/<platform>_config.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing platform p.
func (s *FileStore) Path(p Platform) string {
	return filepath.Join(s.dir, string(p)+"_config.json")
}

// Load reads the credential for p, initializing the file when absent.
func (s *FileStore) Load(ctx context.Context, p Platform) (Credential, error) {
	data, err := os.ReadFile(s.Path(p))
	if errors.Is(err, fs.ErrNotExist) {
		c := New(p)
		if err := s.Save(ctx, c); err != nil {
			return Credential{}, fmt.Errorf("initializing %s credential: %w", p, err)
		}
		return c, nil
	}
	if err != nil {
		return Credential{}, fmt.Errorf("reading %s credential: %w", p, err)
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, fmt.Errorf("parsing %s credential: %w", p, err)
	}
	if c.Platform == "" {
		c.Platform = p
	}
	return c, nil
}

// Save writes c atomically: the document lands in a temp file in the same
// directory and is renamed over the target.
func (s *FileStore) Save(_ context.Context, c Credential) error {
	if c.Platform == "" {
		return errors.New("saving credential: platform is empty")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s credential: %w", c.Platform, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(c.Platform)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s credential: %w", c.Platform, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s credential: %w", c.Platform, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(c.Platform)); err != nil {
		return fmt.Errorf("replacing %s credential: %w", c.Platform, err)
	}
	return nil
}

// Delete removes the persisted credential. Deleting a missing file is not an error.
func (s *FileStore) Delete(_ context.Context, p Platform) error {
	if err := os.Remove(s.Path(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s credential: %w", p, err)
	}
	return nil
}
