package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// StateVersion tags the persisted model layout.
const StateVersion = 1

// Store persists model state by model name.
type Store interface {
	Save(name string, state any) error
	Load(name string, state any) error
}

type envelope struct {
	Version int             `json:"version"`
	Model   string          `json:"model"`
	SavedAt time.Time       `json:"saved_at"`
	State   json.RawMessage `json:"state"`
}

// FileStore keeps one JSON file per model and overwrites it on every save.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+"_model.json")
}

func (s *FileStore) Save(name string, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode %s state: %w", name, err)
	}

	data, err := json.Marshal(envelope{
		Version: StateVersion,
		Model:   name,
		SavedAt: time.Now().UTC(),
		State:   raw,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+"_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s state: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s state: %w", name, err)
	}

	return os.Rename(tmp.Name(), s.Path(name))
}

func (s *FileStore) Load(name string, state any) error {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: no persisted %s state", models.ErrModelNotTrained, name)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s state: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode %s envelope: %w", name, err)
	}
	if env.Version != StateVersion {
		return fmt.Errorf("unsupported %s state version %d (want %d)", name, env.Version, StateVersion)
	}
	if env.Model != name {
		return fmt.Errorf("state file holds model %q, want %q", env.Model, name)
	}

	if err := json.Unmarshal(env.State, state); err != nil {
		return fmt.Errorf("failed to decode %s state: %w", name, err)
	}
	return nil
}
