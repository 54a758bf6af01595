package offline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const recordExt = ".json"

// FileStore keeps one JSON file per key in a directory. Writes go to a
// temporary file that is renamed into place, so readers never observe a
// partial record.
type FileStore struct {
	fs    afero.Fs
	dir   string
	codec *codec
}

// NewFileStore creates the directory if needed.
func NewFileStore(fsys afero.Fs, dir string, opts ...StoreOption) (*FileStore, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("offline: create directory: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir, codec: newCodec(opts)}, nil
}

// Dir returns the record directory.
func (s *FileStore) Dir() string { return s.dir }

// ErrEmptyKey rejects writes that Clear could never address individually.
var ErrEmptyKey = errors.New("offline: empty key")

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

// fileName escapes key for use as a file name. A leading dot is escaped
// too, so records never collide with temp files and always show in Keys.
func fileName(key string) string {
	name := url.QueryEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name + recordExt
}

// Store writes data under key.
func (s *FileStore) Store(_ context.Context, key string, data any) error {
	if key == "" {
		return ErrEmptyKey
	}
	b, err := s.codec.encode(key, data)
	if err != nil {
		return err
	}

	tmp := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	if err := afero.WriteFile(s.fs, tmp, b, 0o600); err != nil {
		return fmt.Errorf("offline: write %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, s.path(key)); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("offline: commit %s: %w", key, err)
	}
	return nil
}

// Retrieve reads the record for key.
func (s *FileStore) Retrieve(_ context.Context, key string) (Record, bool, error) {
	b, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("offline: read %s: %w", key, err)
	}
	rec, err := s.codec.decode(key, b)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Keys lists stored keys.
func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("offline: list %s: %w", s.dir, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasPrefix(name, ".") {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes key, or every record when key is empty.
func (s *FileStore) Clear(ctx context.Context, key string) error {
	if key != "" {
		if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("offline: remove %s: %w", key, err)
		}
		return nil
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Clear(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
