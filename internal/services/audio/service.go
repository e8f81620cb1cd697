package audio

import (
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// Events receives playback lifecycle notifications. The queue manager
// implements this to advance queues and surface player failures.
type Events interface {
	TrackFinished(guildID string)
	PlayerError(guildID string, err error)
}

// Service owns voice connections and players across guilds
type Service struct {
	session *discordgo.Session
	encoder *Encoder
	logger  *logger.Logger

	mu     sync.Mutex
	events Events
	guilds map[string]*GuildVoice
}

// NewService creates the audio service
func NewService(session *discordgo.Session, encoder *Encoder, log *logger.Logger) *Service {
	return &Service{
		session: session,
		encoder: encoder,
		logger:  log,
		guilds:  make(map[string]*GuildVoice),
	}
}

// SetEvents wires the lifecycle sink. Must be called before playback starts.
func (s *Service) SetEvents(events Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// Guild returns the voice session for a guild, creating it on first use
func (s *Service) Guild(guildID string) *GuildVoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.guilds[guildID]; ok {
		return g
	}

	vc := NewVoiceConn(guildID, s.logger)
	g := &GuildVoice{
		guildID: guildID,
		svc:     s,
		vc:      vc,
		player:  NewPlayer(guildID, vc, s.encoder, s.logger),
	}
	s.guilds[guildID] = g
	return g
}

// GuildVoice is one guild's voice session: a connection plus its player
type GuildVoice struct {
	guildID string
	svc     *Service
	vc      *VoiceConn
	player  *Player

	// set before a deliberate Stop so the finish callback does not get
	// reported as a natural track end
	suppress atomic.Bool
}

// Connect joins the given voice channel
func (g *GuildVoice) Connect(channelID string) error {
	return g.vc.Connect(g.svc.session, channelID)
}

// Play streams a track, reporting the outcome to the event sink
func (g *GuildVoice) Play(t *entities.Track) error {
	return g.player.Play(t, func(track *entities.Track, err error) {
		if g.suppress.CompareAndSwap(true, false) {
			return
		}

		g.svc.mu.Lock()
		events := g.svc.events
		g.svc.mu.Unlock()
		if events == nil {
			return
		}

		if err != nil {
			events.PlayerError(g.guildID, err)
			return
		}
		events.TrackFinished(g.guildID)
	})
}

// Stop halts playback without emitting a track-finished event
func (g *GuildVoice) Stop() error {
	g.suppress.Store(true)
	if err := g.player.Stop(); err != nil {
		g.suppress.Store(false)
		return err
	}
	return nil
}

// Disconnect stops playback and leaves the voice channel
func (g *GuildVoice) Disconnect() error {
	if g.player.IsPlaying() {
		g.Stop()
	}
	return g.vc.Disconnect()
}

// IsConnected reports whether the guild has a ready voice connection
func (g *GuildVoice) IsConnected() bool {
	return g.vc.IsConnected()
}

// Pause suspends playback
func (g *GuildVoice) Pause() error {
	return g.player.Pause()
}

// Resume continues paused playback
func (g *GuildVoice) Resume() error {
	return g.player.Resume()
}

// IsPlaying reports whether the guild is streaming audio
func (g *GuildVoice) IsPlaying() bool {
	return g.player.IsPlaying()
}

// ChannelID returns the connected voice channel, empty when disconnected
func (g *GuildVoice) ChannelID() string {
	return g.vc.ChannelID()
}
