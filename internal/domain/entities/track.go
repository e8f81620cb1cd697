package entities

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
)

// Track represents a playable audio item in a guild queue
type Track struct {
	// Identity
	ID  string `json:"id"`
	URL string `json:"url"`

	// Display metadata; Duration and DurationMS are always derived from the
	// same source value so the two representations cannot drift
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Duration   string `json:"duration"`
	DurationMS int64  `json:"duration_ms"`
	Live       bool   `json:"live,omitempty"`

	// Provenance
	Metadata valueobjects.TrackMetadata `json:"metadata"`

	// Requester info
	RequestedBy string `json:"requested_by,omitempty"`
	GuildID     string `json:"guild_id,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitempty"`

	mu sync.RWMutex
}

// NewTrack creates a track with its duration label derived from durationMS
func NewTrack(title, author, url string, durationMS int64, meta valueobjects.TrackMetadata, requestedBy, guildID string) *Track {
	return &Track{
		ID:          uuid.New().String(),
		URL:         url,
		Title:       title,
		Author:      author,
		Duration:    valueobjects.FormatDuration(durationMS),
		DurationMS:  durationMS,
		Metadata:    meta,
		RequestedBy: requestedBy,
		GuildID:     guildID,
		CreatedAt:   time.Now(),
	}
}

// DisplayName returns the best display name for the track
func (t *Track) DisplayName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.Author != "" {
		return t.Author + " - " + t.Title
	}
	return t.Title
}

// MarkLive flags the track as an unbounded stream and forces the infinite
// duration sentinel
func (t *Track) MarkLive() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Live = true
	t.Duration = valueobjects.DurationInfinite
	t.DurationMS = 0
}

// MarkStarted records the moment playback of this track began
func (t *Track) MarkStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.StartedAt = time.Now()
}

// Elapsed returns how long the track has been playing, zero if never started
func (t *Track) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}

// Normalize overwrites display metadata with authoritative values, keeping
// the duration pair consistent. Empty arguments leave the current value.
func (t *Track) Normalize(title, author, thumbnail string, durationMS int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if title != "" {
		t.Title = title
	}
	if author != "" {
		t.Author = author
	}
	if thumbnail != "" {
		t.Thumbnail = thumbnail
	}
	if durationMS > 0 && !t.Live {
		t.DurationMS = durationMS
		t.Duration = valueobjects.FormatDuration(durationMS)
	}
}

// trackJSON is the wire form of a Track; kept field-for-field in sync with
// the struct above
type trackJSON struct {
	ID          string                     `json:"id"`
	URL         string                     `json:"url"`
	Title       string                     `json:"title"`
	Author      string                     `json:"author,omitempty"`
	Thumbnail   string                     `json:"thumbnail,omitempty"`
	Duration    string                     `json:"duration"`
	DurationMS  int64                      `json:"duration_ms"`
	Live        bool                       `json:"live,omitempty"`
	Metadata    valueobjects.TrackMetadata `json:"metadata"`
	RequestedBy string                     `json:"requested_by,omitempty"`
	GuildID     string                     `json:"guild_id,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	StartedAt   time.Time                  `json:"started_at,omitempty"`
}

// MarshalJSON copies the fields under the track lock so a snapshot flush
// cannot race Normalize or MarkStarted
func (t *Track) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return json.Marshal(trackJSON{
		ID:          t.ID,
		URL:         t.URL,
		Title:       t.Title,
		Author:      t.Author,
		Thumbnail:   t.Thumbnail,
		Duration:    t.Duration,
		DurationMS:  t.DurationMS,
		Live:        t.Live,
		Metadata:    t.Metadata,
		RequestedBy: t.RequestedBy,
		GuildID:     t.GuildID,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
	})
}

// IsLive reports whether the track is an unbounded stream
func (t *Track) IsLive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Live
}
