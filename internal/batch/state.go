package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// StateFile is where the hashes of processed documents are kept, relative
// to the output directory.
const StateFile = ".diagramify/state.json"

// State records the content hash of every document whose sections were all
// diagrammed, so unchanged documents can be skipped.
type State struct {
	FileHashes  map[string]string `json:"file_hashes"`
	LastUpdated time.Time         `json:"last_updated"`
}

// LoadState reads the state kept in dir. A missing file yields an empty state.
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{FileHashes: make(map[string]string)}, nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.FileHashes == nil {
		state.FileHashes = make(map[string]string)
	}
	return &state, nil
}

// Save writes the state into dir.
func (s *State) Save(dir string) error {
	path := filepath.Join(dir, StateFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	s.LastUpdated = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// IsFileChanged returns true if the file's content hash differs from the stored hash.
func (s *State) IsFileChanged(relPath, contentHash string) bool {
	stored, ok := s.FileHashes[relPath]
	return !ok || stored != contentHash
}
