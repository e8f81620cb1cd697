package entities

import (
	"sync"
	"time"

	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
)

// RepeatMode defines how the queue repeats
type RepeatMode string

const (
	RepeatModeOff   RepeatMode = "off"
	RepeatModeTrack RepeatMode = "track"
	RepeatModeQueue RepeatMode = "queue"
)

// SessionState is the lifecycle state of a guild session
type SessionState string

const (
	SessionStateActive      SessionState = "active"
	SessionStateSoftDeleted SessionState = "soft_deleted"
	SessionStateDestroyed   SessionState = "destroyed"
)

// GuildSession holds per-guild playback state: the ordered queue, the current
// track and the session lifecycle. All mutation happens under a single mutex
// so that compound snapshot/rebuild/swap operations are atomic with respect
// to concurrent commands for the same guild.
type GuildSession struct {
	guildID    string
	tracks     []*Track
	current    *Track
	repeatMode RepeatMode
	state      SessionState
	createdAt  time.Time
	revivedAt  time.Time

	mu sync.Mutex
}

// NewGuildSession creates an active session for a guild
func NewGuildSession(guildID string) *GuildSession {
	return &GuildSession{
		guildID:    guildID,
		tracks:     make([]*Track, 0),
		repeatMode: RepeatModeOff,
		state:      SessionStateActive,
		createdAt:  time.Now(),
	}
}

// GuildID returns the owning guild identifier
func (s *GuildSession) GuildID() string {
	return s.guildID
}

// AddTrack appends a track and returns its 1-based queue position
func (s *GuildSession) AddTrack(t *Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracks = append(s.tracks, t)
	return len(s.tracks)
}

// CurrentTrack returns the track playback is on, nil when idle
func (s *GuildSession) CurrentTrack() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Next advances playback according to the repeat mode and returns the track
// to play, nil when the queue is exhausted. With queue repeat the finished
// track is re-appended at the back.
func (s *GuildSession) Next() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repeatMode == RepeatModeTrack && s.current != nil {
		return s.current
	}

	if s.repeatMode == RepeatModeQueue && s.current != nil {
		s.tracks = append(s.tracks, s.current)
	}

	if len(s.tracks) == 0 {
		s.current = nil
		return nil
	}

	s.current = s.tracks[0]
	s.tracks = s.tracks[1:]
	return s.current
}

// ClearCurrent drops the current track pointer without touching the queue
func (s *GuildSession) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Size returns the number of queued (upcoming) tracks
func (s *GuildSession) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks)
}

// Tracks returns a copy of the upcoming queue in playback order
func (s *GuildSession) Tracks() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Clear removes all queued tracks
func (s *GuildSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = make([]*Track, 0)
}

// Replace swaps the whole queue for a computed ordering. This is the second
// half of the snapshot/rebuild/swap pattern used by shuffle and recovery.
func (s *GuildSession) Replace(tracks []*Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*Track, len(tracks))
	copy(next, tracks)
	s.tracks = next
}

// MoveTrack moves the track at 1-based position from to position to.
// Out-of-range positions are an error, never clamped.
func (s *GuildSession) MoveTrack(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromIdx, toIdx := from-1, to-1
	if fromIdx < 0 || fromIdx >= len(s.tracks) || toIdx < 0 || toIdx >= len(s.tracks) {
		return apperrors.ErrInvalidPosition
	}
	if fromIdx == toIdx {
		return nil
	}

	next := make([]*Track, 0, len(s.tracks))
	next = append(next, s.tracks[:fromIdx]...)
	next = append(next, s.tracks[fromIdx+1:]...)
	moved := s.tracks[fromIdx]

	rebuilt := make([]*Track, 0, len(s.tracks))
	rebuilt = append(rebuilt, next[:toIdx]...)
	rebuilt = append(rebuilt, moved)
	rebuilt = append(rebuilt, next[toIdx:]...)

	s.tracks = rebuilt
	return nil
}

// RemoveTracks removes a contiguous range starting at 1-based position start.
// A count below one removes exactly one track. The removed tracks are
// returned in their former order.
func (s *GuildSession) RemoveTracks(start, count int) ([]*Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := start - 1
	if idx < 0 || idx >= len(s.tracks) {
		return nil, apperrors.ErrInvalidPosition
	}
	if count < 1 {
		count = 1
	}
	end := idx + count
	if end > len(s.tracks) {
		end = len(s.tracks)
	}

	removed := make([]*Track, end-idx)
	copy(removed, s.tracks[idx:end])

	next := make([]*Track, 0, len(s.tracks)-len(removed))
	next = append(next, s.tracks[:idx]...)
	next = append(next, s.tracks[end:]...)
	s.tracks = next

	return removed, nil
}

// SetRepeatMode sets the repeat mode
func (s *GuildSession) SetRepeatMode(mode RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeatMode = mode
}

// GetRepeatMode returns the current repeat mode
func (s *GuildSession) GetRepeatMode() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeatMode
}

// State returns the lifecycle state
func (s *GuildSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SoftDelete marks the session inactive while keeping it in the registry
func (s *GuildSession) SoftDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionStateActive {
		s.state = SessionStateSoftDeleted
		s.current = nil
	}
}

// Revive reactivates a soft-deleted session in place, keeping residual tracks
func (s *GuildSession) Revive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionStateDestroyed {
		return apperrors.ErrSessionDestroyed
	}
	s.state = SessionStateActive
	s.revivedAt = time.Now()
	return nil
}

// Destroy marks the session terminally dead
func (s *GuildSession) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SessionStateDestroyed
	s.tracks = nil
	s.current = nil
}

// IsIdle reports whether the session has nothing queued and nothing playing,
// making it eligible for cleanup
func (s *GuildSession) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks) == 0 && s.current == nil
}

// CreatedAt returns the session creation time
func (s *GuildSession) CreatedAt() time.Time {
	return s.createdAt
}

// RevivedAt returns the last revival time, zero if never revived
func (s *GuildSession) RevivedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revivedAt
}
