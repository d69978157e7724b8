package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

// Persister stores the session snapshot between processes
type Persister interface {
	// Load returns the persisted state, or an empty State if none exists.
	Load() (State, error)

	// Save replaces the persisted state.
	Save(State) error

	// Clear removes the persisted state. Clearing nothing is not an error.
	Clear() error
}

// SessionFile is the file name used inside the state directory
const SessionFile = "session.json"

// FilePersister keeps the session as a JSON file readable only by the owner
type FilePersister struct {
	path string
}

// NewFilePersister stores the session in dir/session.json
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{path: filepath.Join(dir, SessionFile)}
}

// Path returns the session file location
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the session file
func (p *FilePersister) Load() (State, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, perrors.Wrap(perrors.ErrCodeFileReadFailed, "failed to read session file", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, perrors.NewFileUnmarshalError(p.path, "JSON", err)
	}
	return st, nil
}

// Save writes the session file through a temp file and rename so a crash
// never leaves a half-written session behind.
func (p *FilePersister) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return perrors.NewSessionPersistError(p.path, err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return perrors.NewSessionPersistError(p.path, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return perrors.NewSessionPersistError(p.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op once renamed

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return perrors.NewSessionPersistError(p.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return perrors.NewSessionPersistError(p.path, err)
	}
	if err := tmp.Close(); err != nil {
		return perrors.NewSessionPersistError(p.path, err)
	}

	if err := os.Rename(tmpName, p.path); err != nil {
		return perrors.NewSessionPersistError(p.path, err)
	}
	return nil
}

// Clear deletes the session file
func (p *FilePersister) Clear() error {
	err := os.Remove(p.path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return perrors.NewSessionPersistError(p.path, err)
}

// MemoryPersister keeps the serialized session in memory. Two stores sharing
// one MemoryPersister behave like two runs of the program.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryPersister creates an empty in-memory persister
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load decodes the stored bytes
func (m *MemoryPersister) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return State{}, nil
	}
	var st State
	if err := json.Unmarshal(m.data, &st); err != nil {
		return State{}, perrors.Wrap(perrors.ErrCodeSessionRestore, "corrupt session data", err)
	}
	return st, nil
}

// Save encodes the state
func (m *MemoryPersister) Save(st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return perrors.NewSessionPersistError("memory", err)
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

// Clear drops the stored bytes
func (m *MemoryPersister) Clear() error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// Raw returns the serialized form, or nil when empty
func (m *MemoryPersister) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
