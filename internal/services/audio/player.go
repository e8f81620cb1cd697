package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

var (
	// ErrNoVoiceConnection is returned when there is no voice connection
	ErrNoVoiceConnection = errors.New("no voice connection")
	// ErrPlayerNotPlaying is returned when the player is idle
	ErrPlayerNotPlaying = errors.New("player is not playing")
)

// PlaybackCallback fires when playback of a track ends. err is nil for a
// natural finish and non-nil for pipeline failures.
type PlaybackCallback func(track *entities.Track, err error)

// Player streams one guild's audio to Discord
type Player struct {
	guildID string
	vc      *VoiceConn
	encoder *Encoder
	logger  *logger.Logger

	current    *entities.Track
	isPlaying  atomic.Bool
	isPaused   atomic.Bool
	stopSignal chan struct{}
	callback   PlaybackCallback

	mu sync.RWMutex
}

// NewPlayer creates a player bound to a guild's voice connection
func NewPlayer(guildID string, vc *VoiceConn, encoder *Encoder, log *logger.Logger) *Player {
	return &Player{
		guildID:    guildID,
		vc:         vc,
		encoder:    encoder,
		logger:     log,
		stopSignal: make(chan struct{}),
	}
}

// Play starts streaming a track. callback fires exactly once when the
// pipeline ends, whether naturally, by error, or by Stop.
func (p *Player) Play(track *entities.Track, callback PlaybackCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isPlaying.Load() {
		return ErrAlreadyPlaying
	}
	if !p.vc.IsConnected() {
		return ErrNoVoiceConnection
	}

	source := playbackSource(track)

	p.logger.WithFields(map[string]interface{}{
		"track": track.DisplayName(),
		"guild": p.guildID,
	}).Info("Starting playback")

	p.current = track
	p.callback = callback
	p.stopSignal = make(chan struct{})
	p.isPlaying.Store(true)
	p.isPaused.Store(false)

	track.MarkStarted()
	go p.playbackLoop(track, source)
	return nil
}

// playbackSource picks what the encoder should open: a cached local file
// when one exists, otherwise the track URL
func playbackSource(track *entities.Track) string {
	switch track.Metadata.Kind {
	case valueobjects.MetadataKindGeneric:
		if track.Metadata.Generic != nil && track.Metadata.Generic.LocalPath != "" {
			return track.Metadata.Generic.LocalPath
		}
	case valueobjects.MetadataKindDatabase:
		// library tracks stream from the file server URL
	}
	return track.URL
}

func (p *Player) playbackLoop(track *entities.Track, source string) {
	var playErr error

	defer func() {
		p.isPlaying.Store(false)
		p.isPaused.Store(false)

		p.mu.Lock()
		callback := p.callback
		p.callback = nil
		p.current = nil
		p.mu.Unlock()

		if callback != nil {
			callback(track, playErr)
		}
	}()

	if err := p.vc.Speaking(true); err != nil {
		playErr = err
		return
	}
	defer p.vc.Speaking(false)

	frames, errs := p.encoder.Encode(source, DefaultEncodeOptions())

	vc := p.vc.Raw()
	if vc == nil {
		playErr = ErrNoVoiceConnection
		return
	}

	frameCount := 0
	for {
		select {
		case <-p.stopSignal:
			p.logger.WithField("guild", p.guildID).Info("Playback stopped")
			return

		case err := <-errs:
			if err != nil {
				p.logger.WithError(err).WithField("guild", p.guildID).Error("Encoding error")
				playErr = err
				return
			}

		case frame, ok := <-frames:
			if !ok {
				p.logger.WithFields(map[string]interface{}{
					"guild":  p.guildID,
					"frames": frameCount,
				}).Info("Playback completed")
				return
			}

			for p.isPaused.Load() {
				select {
				case <-p.stopSignal:
					return
				case <-time.After(100 * time.Millisecond):
				}
			}

			select {
			case vc.OpusSend <- frame:
				frameCount++
			case <-p.stopSignal:
				return
			}
		}
	}
}

// Stop halts the current playback
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isPlaying.Load() {
		return ErrPlayerNotPlaying
	}

	select {
	case <-p.stopSignal:
	default:
		close(p.stopSignal)
	}

	p.isPlaying.Store(false)
	p.isPaused.Store(false)
	return nil
}

// Pause suspends frame delivery without tearing down the pipeline
func (p *Player) Pause() error {
	if !p.isPlaying.Load() {
		return ErrPlayerNotPlaying
	}
	if p.isPaused.Load() {
		return errors.New("already paused")
	}

	p.isPaused.Store(true)
	if err := p.vc.Speaking(false); err != nil {
		p.logger.WithError(err).Warn("Failed to update speaking state on pause")
	}
	return nil
}

// Resume continues a paused playback
func (p *Player) Resume() error {
	if !p.isPlaying.Load() {
		return ErrPlayerNotPlaying
	}
	if !p.isPaused.Load() {
		return errors.New("not paused")
	}

	p.isPaused.Store(false)
	if err := p.vc.Speaking(true); err != nil {
		p.logger.WithError(err).Warn("Failed to update speaking state on resume")
	}
	return nil
}

// IsPlaying reports whether a track is being streamed
func (p *Player) IsPlaying() bool {
	return p.isPlaying.Load()
}

// IsPaused reports whether playback is paused
func (p *Player) IsPaused() bool {
	return p.isPaused.Load()
}

// Current returns the track being played, nil when idle
func (p *Player) Current() *entities.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}
