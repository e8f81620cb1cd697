package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
)

// GuildQueue is one guild's persisted queue: current track first, then the
// remaining queue in order
type GuildQueue struct {
	GuildID string            `json:"guildId"`
	Tracks  []*entities.Track `json:"tracks"`
}

// Store reads and writes the active-queue snapshot file
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a snapshot store backed by the given file path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save writes every guild's queue to disk with an atomic temp-file rename
func (s *Store) Save(queues map[string][]*entities.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]GuildQueue, 0, len(queues))
	for guildID, tracks := range queues {
		snapshot = append(snapshot, GuildQueue{GuildID: guildID, Tracks: tracks})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue snapshot: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write queue snapshot: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace queue snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file is an empty snapshot, not an
// error.
func (s *Store) Load() ([]GuildQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue snapshot: %w", err)
	}

	var snapshot []GuildQueue
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode queue snapshot: %w", err)
	}
	return snapshot, nil
}
