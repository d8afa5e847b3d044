package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/vitality/internal/vitality"
)

// FormatVersion is the current on-disk envelope version.
const FormatVersion = 1

var (
	// ErrUnsupportedFormat is returned for files written by a newer version.
	ErrUnsupportedFormat = errors.New("unsupported state format")
	// ErrCorruptState is returned for files that cannot be decoded.
	ErrCorruptState = errors.New("corrupt state file")
)

type envelope struct {
	FormatVersion int             `json:"format_version"`
	SavedAt       time.Time       `json:"saved_at"`
	State         json.RawMessage `json:"state"`
}

// FileStore keeps one JSON file per agent under Dir.
type FileStore struct {
	Dir   string
	Cache *Cache
	Now   func() time.Time
}

func (fs *FileStore) now() time.Time {
	if fs.Now != nil {
		return fs.Now()
	}
	return time.Now()
}

// Path returns the file an agent's state lives in.
func (fs *FileStore) Path(agentID string) string {
	return filepath.Join(fs.Dir, stateFileName(agentID))
}

// Load returns an agent's state. A missing file yields a fresh default state
// and no error. Concurrent cold loads of one agent share a single read.
func (fs *FileStore) Load(ctx context.Context, agentID string) (vitality.State, error) {
	if err := ctx.Err(); err != nil {
		return vitality.State{}, err
	}
	if s, ok := fs.Cache.Get(agentID); ok {
		return s, nil
	}
	if fs.Cache == nil {
		return fs.read(agentID)
	}

	v, err, _ := fs.Cache.loads.Do(agentID, func() (any, error) {
		s, err := fs.read(agentID)
		if err != nil {
			return nil, err
		}
		fs.Cache.Put(s)
		return s, nil
	})
	if err != nil {
		return vitality.State{}, err
	}
	return v.(vitality.State).Clone(), nil
}

func (fs *FileStore) read(agentID string) (vitality.State, error) {
	data, err := os.ReadFile(fs.Path(agentID))
	if errors.Is(err, os.ErrNotExist) {
		return vitality.NewDefaultState(agentID, fs.now()), nil
	}
	if err != nil {
		return vitality.State{}, fmt.Errorf("read state %s: %w", agentID, err)
	}
	s, err := decodeState(data)
	if err != nil {
		return vitality.State{}, fmt.Errorf("load state %s: %w", agentID, err)
	}
	if s.AgentID == "" {
		s.AgentID = agentID
	}
	return s.Normalize(), nil
}

// decodeState accepts the current envelope and the bare state written before
// envelopes existed.
func decodeState(data []byte) (vitality.State, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return vitality.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	raw := json.RawMessage(data)
	if _, ok := top["format_version"]; ok {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return vitality.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		if env.FormatVersion > FormatVersion {
			return vitality.State{}, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, env.FormatVersion)
		}
		raw = env.State
	}

	var s vitality.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return vitality.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return s, nil
}

func encodeState(s vitality.State, savedAt time.Time) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return json.MarshalIndent(envelope{FormatVersion: FormatVersion, SavedAt: savedAt, State: body}, "", "  ")
}

// Save writes an agent's state. The new content goes to a temporary file in
// the same directory which then replaces the old file, so readers never see
// a partial record and a failed save leaves the previous file intact.
func (fs *FileStore) Save(ctx context.Context, s vitality.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fs.write(s, false)
}

// SaveSync is Save followed by fsync of the file and its directory.
func (fs *FileStore) SaveSync(s vitality.State) error {
	return fs.write(s, true)
}

func (fs *FileStore) write(s vitality.State, durable bool) error {
	if strings.TrimSpace(s.AgentID) == "" {
		return errors.New("save state: empty agent id")
	}
	data, err := encodeState(s, fs.now())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(fs.Dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(fs.Dir, ".vitality-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write state %s: %w", s.AgentID, err)
	}
	if durable {
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			cleanup()
			return fmt.Errorf("sync state %s: %w", s.AgentID, err)
		}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close state %s: %w", s.AgentID, err)
	}
	if err := os.Rename(tmpName, fs.Path(s.AgentID)); err != nil {
		cleanup()
		return fmt.Errorf("replace state %s: %w", s.AgentID, err)
	}
	if durable {
		if err := syncDir(fs.Dir); err != nil {
			return fmt.Errorf("sync state dir: %w", err)
		}
	}

	fs.Cache.Put(s)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Exists reports whether an agent has a state file.
func (fs *FileStore) Exists(agentID string) bool {
	_, err := os.Stat(fs.Path(agentID))
	return err == nil
}

func stateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != stateExt {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// List returns the ids of every agent with a readable state file, sorted.
// Unreadable files are skipped.
func (fs *FileStore) List() ([]string, error) {
	files, err := stateFiles(fs.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list state dir: %w", err)
	}
	var ids []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		s, err := decodeState(data)
		if err != nil || s.AgentID == "" {
			continue
		}
		ids = append(ids, s.AgentID)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadState is FileStore.Load for callers that do not hold a FileStore.
func LoadState(ctx context.Context, dir, agentID string, cache *Cache) (vitality.State, error) {
	return (&FileStore{Dir: dir, Cache: cache}).Load(ctx, agentID)
}

// SaveState is FileStore.Save for callers that do not hold a FileStore.
func SaveState(ctx context.Context, dir string, s vitality.State, cache *Cache) error {
	return (&FileStore{Dir: dir, Cache: cache}).Save(ctx, s)
}

// SaveStateSync is FileStore.SaveSync for callers that do not hold a FileStore.
func SaveStateSync(dir string, s vitality.State, cache *Cache) error {
	return (&FileStore{Dir: dir, Cache: cache}).SaveSync(s)
}

// HasState reports whether dir contains any agent state file.
func HasState(dir string) bool {
	files, err := stateFiles(dir)
	return err == nil && len(files) > 0
}

// StateExists reports whether agentID has a state file in dir.
func StateExists(dir, agentID string) bool {
	return (&FileStore{Dir: dir}).Exists(agentID)
}

// ListAgents returns every agent id with a state file in dir.
func ListAgents(dir string) ([]string, error) {
	return (&FileStore{Dir: dir}).List()
}
