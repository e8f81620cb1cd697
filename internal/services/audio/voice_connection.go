package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

var (
	// ErrNotConnected is returned when not connected to a voice channel
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when joining a voice channel fails
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
)

// VoiceConn owns one guild's Discord voice connection
type VoiceConn struct {
	guildID   string
	channelID string
	vc        *discordgo.VoiceConnection
	logger    *logger.Logger
	mu        sync.RWMutex
}

// NewVoiceConn creates an unconnected voice connection for a guild
func NewVoiceConn(guildID string, log *logger.Logger) *VoiceConn {
	return &VoiceConn{
		guildID: guildID,
		logger:  log,
	}
}

// Connect joins a voice channel, moving from the current one when needed,
// and waits for the connection to become ready
func (v *VoiceConn) Connect(session *discordgo.Session, channelID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.vc != nil && v.vc.Status == discordgo.VoiceConnectionStatusReady {
		if v.channelID == channelID {
			return nil
		}
		if err := v.disconnectLocked(); err != nil {
			v.logger.WithError(err).Warn("Failed to disconnect before moving channels")
		}
	}

	v.logger.WithField("channel", channelID).Info("Connecting to voice channel")

	joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// mute=false, deaf=true
	vc, err := session.ChannelVoiceJoin(joinCtx, v.guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	readyTimeout := time.After(10 * time.Second)
	readyTicker := time.NewTicker(100 * time.Millisecond)
	defer readyTicker.Stop()

	for vc.Status != discordgo.VoiceConnectionStatusReady {
		select {
		case <-readyTimeout:
			vc.Disconnect(context.Background())
			return fmt.Errorf("%w: connection not ready after 10s", ErrConnectionFailed)
		case <-readyTicker.C:
		}
	}

	v.vc = vc
	v.channelID = channelID

	v.logger.WithField("channel", channelID).Info("Connected to voice channel")
	return nil
}

// Disconnect leaves the voice channel
func (v *VoiceConn) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnectLocked()
}

func (v *VoiceConn) disconnectLocked() error {
	if v.vc == nil {
		return ErrNotConnected
	}

	if err := v.vc.Disconnect(context.Background()); err != nil {
		return err
	}

	v.vc = nil
	v.channelID = ""
	return nil
}

// IsConnected reports whether the connection is up and ready
func (v *VoiceConn) IsConnected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vc != nil && v.vc.Status == discordgo.VoiceConnectionStatusReady
}

// ChannelID returns the connected channel, empty when disconnected
func (v *VoiceConn) ChannelID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.channelID
}

// Raw returns the underlying discordgo connection for frame streaming
func (v *VoiceConn) Raw() *discordgo.VoiceConnection {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vc
}

// Speaking updates the speaking indicator
func (v *VoiceConn) Speaking(speaking bool) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.vc == nil {
		return ErrNotConnected
	}
	return v.vc.Speaking(speaking)
}
