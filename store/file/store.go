// Package filestore persists session state as a JSON file.
package filestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-brokerage/core"
	"github.com/moby/sys/atomicwriter"
)

const (
	DefaultFileName = "td_state.json"
	defaultDirName  = "go-brokerage"
	filePerm        = 0o600
	dirPerm         = 0o700
)

// Store reads and atomically replaces a single state file.
type Store struct {
	mu    sync.Mutex
	path  string
	codec core.StateCodec
}

type Option func(*Store)

func WithCodec(codec core.StateCodec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// DefaultPath is the state file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", core.WrapConfigurationError(err, "filestore: resolve user config directory", nil)
	}
	return filepath.Join(dir, defaultDirName, DefaultFileName), nil
}

// New opens the store at path. An empty path selects DefaultPath and creates
// its directory. An explicit path must live in an existing directory and, if
// the file already exists, be a readable regular file.
func New(path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		resolved, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return nil, core.WrapConfigurationError(err, "filestore: create state directory", map[string]any{
				"path": path,
			})
		}
	}
	if explicit {
		if err := checkExplicitPath(path); err != nil {
			return nil, err
		}
	}

	store := &Store{path: path, codec: core.JSONStateCodec{}}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func checkExplicitPath(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return core.WrapConfigurationError(err, "filestore: credentials directory is not accessible", map[string]any{
			"path": path,
		})
	}
	if !info.IsDir() {
		return core.NewConfigurationError("filestore: credentials directory is not a directory", map[string]any{
			"path": path,
		})
	}

	info, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return core.WrapConfigurationError(err, "filestore: credentials path is not accessible", map[string]any{
			"path": path,
		})
	}
	if !info.Mode().IsRegular() {
		return core.NewConfigurationError("filestore: credentials path is not a regular file", map[string]any{
			"path": path,
		})
	}
	file, err := os.Open(path)
	if err != nil {
		return core.WrapConfigurationError(err, "filestore: credentials path is not readable", map[string]any{
			"path": path,
		})
	}
	return file.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Load(_ context.Context) (core.SessionState, bool, error) {
	if s == nil {
		return core.SessionState{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.SessionState{}, false, nil
	}
	if err != nil {
		return core.SessionState{}, false, core.WrapConfigurationError(err, "filestore: read state file", map[string]any{
			"path": s.path,
		})
	}
	if strings.TrimSpace(string(payload)) == "" {
		return core.SessionState{}, false, nil
	}
	state, err := s.codec.Decode(payload)
	if err != nil {
		return core.SessionState{}, false, core.WrapConfigurationError(err, "filestore: state file is corrupt", map[string]any{
			"path": s.path,
		})
	}
	return state, true, nil
}

func (s *Store) Save(_ context.Context, state core.SessionState) error {
	if s == nil {
		return nil
	}
	payload, err := s.codec.Encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicwriter.WriteFile(s.path, payload, filePerm)
}

func (s *Store) Delete(_ context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

var _ core.StateStore = (*Store)(nil)
