package session

import (
	"sync"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// VoiceSession is the narrow transport surface the manager drives. The
// Discord implementation lives in services/audio; tests inject fakes.
type VoiceSession interface {
	Connect(channelID string) error
	Play(t *entities.Track) error
	Stop() error
	Pause() error
	Resume() error
	Disconnect() error
	IsConnected() bool
}

// VoiceFactory builds a voice session for a guild
type VoiceFactory func(guildID string) VoiceSession

// Notifier delivers lifecycle messages to the session's originating text
// channel. The command layer owns formatting; these are plain strings.
type Notifier interface {
	Notify(guildID, channelID, message string)
}

type managed struct {
	session        *entities.GuildSession
	voice          VoiceSession
	textChannelID  string
	selfDisconnect bool
}

// Manager owns the guild-to-session registry and reacts to voice lifecycle
// signals. It is an injected dependency, not a package singleton, so tests
// can build isolated instances.
type Manager struct {
	newVoice VoiceFactory
	notifier Notifier
	logger   *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*managed
}

// NewManager creates a session manager with an empty registry
func NewManager(newVoice VoiceFactory, notifier Notifier, log *logger.Logger) *Manager {
	return &Manager{
		newVoice: newVoice,
		notifier: notifier,
		logger:   log,
		sessions: make(map[string]*managed),
	}
}

// Open returns the guild's session, creating a new one or reviving a
// soft-deleted one, and connects its voice transport to channelID.
func (m *Manager) Open(guildID, channelID, textChannelID string) (*entities.GuildSession, error) {
	m.mu.Lock()
	entry, exists := m.sessions[guildID]
	if !exists {
		entry = &managed{
			session: entities.NewGuildSession(guildID),
			voice:   m.newVoice(guildID),
		}
		m.sessions[guildID] = entry
	}
	entry.textChannelID = textChannelID
	entry.selfDisconnect = false
	m.mu.Unlock()

	if entry.session.State() == entities.SessionStateSoftDeleted {
		if err := entry.session.Revive(); err != nil {
			return nil, err
		}
		m.logger.WithField("guild", guildID).Info("Session revived")
	}

	if err := entry.voice.Connect(channelID); err != nil {
		return nil, err
	}
	return entry.session, nil
}

// Get returns the session for a guild when one exists in any non-destroyed state
func (m *Manager) Get(guildID string) (*entities.GuildSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.sessions[guildID]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// Enqueue appends a track to the guild queue and returns its 1-based position
func (m *Manager) Enqueue(guildID string, t *entities.Track) (int, error) {
	entry, ok := m.entry(guildID)
	if !ok {
		return 0, apperrors.ErrNoSession
	}
	return entry.session.AddTrack(t), nil
}

// PlayNext advances the queue and starts playback of the resulting track.
// Returns the track now playing, nil when the queue ran out.
func (m *Manager) PlayNext(guildID string) (*entities.Track, error) {
	entry, ok := m.entry(guildID)
	if !ok {
		return nil, apperrors.ErrNoSession
	}

	next := entry.session.Next()
	if next == nil {
		return nil, nil
	}

	if err := entry.voice.Play(next); err != nil {
		return nil, err
	}
	next.MarkStarted()
	return next, nil
}

// StartIfIdle kicks off playback when nothing is currently playing
func (m *Manager) StartIfIdle(guildID string) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}
	if entry.session.CurrentTrack() != nil {
		return nil
	}
	_, err := m.PlayNext(guildID)
	return err
}

// Skip stops the current track and advances to the next one. Returns the
// track now playing, nil when the queue ran out.
func (m *Manager) Skip(guildID string) (*entities.Track, error) {
	entry, ok := m.entry(guildID)
	if !ok {
		return nil, apperrors.ErrNoSession
	}

	if err := entry.voice.Stop(); err != nil {
		m.logger.WithError(err).WithField("guild", guildID).Debug("Stop before skip failed")
	}

	next, err := m.PlayNext(guildID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		entry.session.ClearCurrent()
	}
	return next, nil
}

// Pause suspends the guild's playback
func (m *Manager) Pause(guildID string) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}
	return entry.voice.Pause()
}

// Resume continues the guild's paused playback
func (m *Manager) Resume(guildID string) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}
	return entry.voice.Resume()
}

// Shuffle reorders the upcoming queue with the named algorithm using the
// snapshot/rebuild/swap pattern
func (m *Manager) Shuffle(guildID, algorithm string) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}

	snapshot := entry.session.Tracks()
	if len(snapshot) < 2 {
		return nil
	}

	algo := ParseShuffleAlgorithm(algorithm)
	entry.session.Replace(shuffleTracks(snapshot, algo))

	m.logger.WithFields(map[string]interface{}{
		"guild":     guildID,
		"algorithm": algo,
		"tracks":    len(snapshot),
	}).Info("Queue shuffled")
	return nil
}

// MoveTrack moves a queued track between 1-based positions
func (m *Manager) MoveTrack(guildID string, from, to int) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}
	return entry.session.MoveTrack(from, to)
}

// RemoveTracks removes a contiguous range from the queue
func (m *Manager) RemoveTracks(guildID string, start, count int) ([]*entities.Track, error) {
	entry, ok := m.entry(guildID)
	if !ok {
		return nil, apperrors.ErrNoSession
	}
	return entry.session.RemoveTracks(start, count)
}

// Leave soft-deletes the session: disconnect the transport but keep the
// registry entry so a later play command can revive it
func (m *Manager) Leave(guildID string) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}

	m.mu.Lock()
	entry.selfDisconnect = true
	m.mu.Unlock()

	entry.session.SoftDelete()
	if err := entry.voice.Disconnect(); err != nil {
		m.logger.WithError(err).WithField("guild", guildID).Warn("Disconnect failed during leave")
	}
	m.logger.WithField("guild", guildID).Info("Session soft-deleted")
	return nil
}

// Destroy hard-destroys the session and evicts it from the registry. A later
// play command creates a brand-new session, not a revival.
func (m *Manager) Destroy(guildID string) {
	m.mu.Lock()
	entry, ok := m.sessions[guildID]
	if ok {
		entry.selfDisconnect = true
		delete(m.sessions, guildID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	entry.session.Destroy()
	if err := entry.voice.Disconnect(); err != nil {
		m.logger.WithError(err).WithField("guild", guildID).Warn("Disconnect failed during destroy")
	}
	m.logger.WithField("guild", guildID).Info("Session destroyed")
}

// Recover restarts a stuck session: re-insert the remaining tracks (current
// track first) and force playback from the front, or tear the session down
// entirely when nothing is left.
func (m *Manager) Recover(guildID string) error {
	entry, ok := m.entry(guildID)
	if !ok {
		return apperrors.ErrNoSession
	}

	remaining := entry.session.Tracks()
	if current := entry.session.CurrentTrack(); current != nil {
		remaining = append([]*entities.Track{current}, remaining...)
	}

	if len(remaining) == 0 {
		m.Destroy(guildID)
		return nil
	}

	if err := entry.voice.Stop(); err != nil {
		m.logger.WithError(err).WithField("guild", guildID).Warn("Stop failed during recover")
	}
	entry.session.ClearCurrent()
	entry.session.Replace(remaining)

	m.logger.WithFields(map[string]interface{}{
		"guild":  guildID,
		"tracks": len(remaining),
	}).Info("Recovering playback")

	_, err := m.PlayNext(guildID)
	return err
}

// ActiveQueues captures every non-empty session's ordered tracks, the
// currently playing track first. Used by queue persistence.
func (m *Manager) ActiveQueues() map[string][]*entities.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]*entities.Track)
	for guildID, entry := range m.sessions {
		if entry.session.State() != entities.SessionStateActive {
			continue
		}
		tracks := entry.session.Tracks()
		if current := entry.session.CurrentTrack(); current != nil {
			tracks = append([]*entities.Track{current}, tracks...)
		}
		if len(tracks) > 0 {
			out[guildID] = tracks
		}
	}
	return out
}

// HandleEmptyChannel reacts to all listeners leaving the voice channel. The
// connection is left intact; the transport may auto-disconnect on its own.
func (m *Manager) HandleEmptyChannel(guildID string) {
	entry, ok := m.entry(guildID)
	if !ok {
		return
	}
	if entry.voice.IsConnected() {
		m.notify(entry, guildID, "Everyone left the voice channel.")
	}
}

// HandlePlayerError reacts to a playback error on the current track by
// skipping to the next track when one exists
func (m *Manager) HandlePlayerError(guildID string, playErr error) {
	entry, ok := m.entry(guildID)
	if !ok {
		return
	}

	m.logger.WithError(playErr).WithField("guild", guildID).Error("Playback error")

	if entry.session.Size() == 0 {
		entry.session.ClearCurrent()
		m.logger.WithField("guild", guildID).Info("No tracks left after playback error")
		return
	}
	if _, err := m.PlayNext(guildID); err != nil {
		m.logger.WithError(err).WithField("guild", guildID).Error("Skip after playback error failed")
	}
}

// HandleConnectionDestroyed reacts to the transport connection dying. The
// notification is suppressed when the manager itself initiated the teardown.
func (m *Manager) HandleConnectionDestroyed(guildID string) {
	m.mu.RLock()
	entry, ok := m.sessions[guildID]
	var self bool
	if ok {
		self = entry.selfDisconnect
	}
	m.mu.RUnlock()

	if !ok || self {
		return
	}
	m.notify(entry, guildID, "Voice connection was lost.")
}

// HandleTrackFinished advances playback when a track ends; emits the
// queue-empty notification when nothing is left
func (m *Manager) HandleTrackFinished(guildID string) {
	entry, ok := m.entry(guildID)
	if !ok {
		return
	}

	next, err := m.PlayNext(guildID)
	if err != nil {
		m.HandlePlayerError(guildID, err)
		return
	}
	if next == nil {
		entry.session.ClearCurrent()
		if entry.voice.IsConnected() {
			m.notify(entry, guildID, "Queue finished.")
		}
	}
}

func (m *Manager) entry(guildID string) (*managed, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[guildID]
	return entry, ok
}

func (m *Manager) notify(entry *managed, guildID, message string) {
	if m.notifier == nil || entry.textChannelID == "" {
		return
	}
	m.notifier.Notify(guildID, entry.textChannelID, message)
}
