package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// Metadata is the provider metadata blob stored next to a downloaded file
type Metadata struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	URL        string `json:"url,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Entry is a cache hit: the local audio file plus its metadata
type Entry struct {
	ID       string   `json:"id"`
	FilePath string   `json:"file_path"`
	Meta     Metadata `json:"meta"`
}

// PlaylistItem is one entry of a cached playlist snapshot
type PlaylistItem struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
}

// PlaylistSnapshot records a resolved playlist keyed by its playlist ID
type PlaylistSnapshot struct {
	ID      string         `json:"id"`
	Title   string         `json:"title,omitempty"`
	URL     string         `json:"url"`
	Items   []PlaylistItem `json:"items"`
	SavedAt time.Time      `json:"saved_at"`
}

// Store is the on-disk download cache. Entries are content-addressed by
// source identifier and written once per key; a present entry always points
// at an existing, non-empty audio file.
//
// Layout: <dir>/metadata/<videoID>.json, <dir>/<videoID>.m4a and
// <dir>/<playlistID>.json for playlist snapshots.
type Store struct {
	dir    string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewStore creates the cache directories if needed
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "metadata"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir, logger: log}, nil
}

// AudioPath returns the deterministic output path for a video identifier
func (s *Store) AudioPath(id string) string {
	return filepath.Join(s.dir, id+".m4a")
}

func (s *Store) metadataPath(id string) string {
	return filepath.Join(s.dir, "metadata", id+".json")
}

// Get looks up an entry by identifier. A metadata record whose audio file is
// missing or empty counts as a miss.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id string) (*Entry, bool) {
	data, err := os.ReadFile(s.metadataPath(id))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Corrupt cache metadata, treating as miss")
		return nil, false
	}

	info, err := os.Stat(entry.FilePath)
	if err != nil || info.Size() == 0 {
		return nil, false
	}
	return &entry, true
}

// Put records a downloaded file. Writers never overwrite an existing valid
// entry for the same key; the existing entry wins.
func (s *Store) Put(id, filePath string, meta Metadata) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.getLocked(id); ok {
		return existing, nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("cache payload missing: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("cache payload is empty: %s", filePath)
	}

	entry := &Entry{ID: id, FilePath: filePath, Meta: meta}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(id), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write cache entry: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"id":    id,
		"bytes": info.Size(),
	}).Debug("Cache entry written")
	return entry, nil
}

// SavePlaylist stores a playlist snapshot keyed by playlist ID
func (s *Store) SavePlaylist(snap PlaylistSnapshot) error {
	snap.SavedAt = time.Now()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal playlist snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, snap.ID+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write playlist snapshot: %w", err)
	}
	return nil
}

// LoadPlaylist reads a playlist snapshot, reporting a miss as ok=false
func (s *Store) LoadPlaylist(id string) (*PlaylistSnapshot, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, false
	}

	var snap PlaylistSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Corrupt playlist snapshot, treating as miss")
		return nil, false
	}
	return &snap, true
}

// Dir returns the cache root directory
func (s *Store) Dir() string {
	return s.dir
}
