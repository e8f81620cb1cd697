package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/config"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/repositories"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/persistence"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/resolver"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/session"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// Handler routes slash commands to the playback and queue services
type Handler struct {
	discord  *discordgo.Session
	sessions *session.Manager
	resolver *resolver.Resolver
	keeper   *persistence.Keeper
	library  *repositories.TrackRepository // nil when the database is disabled
	quotes   *repositories.QuoteRepository // nil when the database is disabled
	logger   *logger.Logger
	config   *config.Config
}

// NewHandler creates a command handler
func NewHandler(
	discord *discordgo.Session,
	sessions *session.Manager,
	res *resolver.Resolver,
	keeper *persistence.Keeper,
	library *repositories.TrackRepository,
	quotes *repositories.QuoteRepository,
	log *logger.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		discord:  discord,
		sessions: sessions,
		resolver: res,
		keeper:   keeper,
		library:  library,
		quotes:   quotes,
		logger:   log,
		config:   cfg,
	}
}

// RegisterCommands registers all slash commands with Discord
func (h *Handler) RegisterCommands() error {
	commands := GetCommands()

	_, err := h.discord.ApplicationCommandBulkOverwrite(h.discord.State.User.ID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	h.logger.WithField("count", len(commands)).Info("All commands registered")
	return nil
}

// HandleInteraction routes incoming interactions to the appropriate handler
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error("Recovered from panic in command handler")
			_ = respondError(s, i, "An internal error occurred")
		}
	}()

	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()

	h.logger.WithFields(map[string]interface{}{
		"command": data.Name,
		"guild":   i.GuildID,
		"user":    i.Member.User.Username,
	}).Info("Command received")

	var err error
	switch data.Name {
	case "play":
		err = h.handlePlay(s, i)
	case "playdb":
		err = h.handlePlayDB(s, i)
	case "pause":
		err = h.handlePause(s, i)
	case "resume":
		err = h.handleResume(s, i)
	case "skip":
		err = h.handleSkip(s, i)
	case "recover":
		err = h.handleRecover(s, i)

	case "queue":
		err = h.handleQueue(s, i)
	case "nowplaying":
		err = h.handleNowPlaying(s, i)
	case "shuffle":
		err = h.handleShuffle(s, i)
	case "move":
		err = h.handleMove(s, i)
	case "remove":
		err = h.handleRemove(s, i)
	case "repeat":
		err = h.handleRepeat(s, i)
	case "restore":
		err = h.handleRestore(s, i)
	case "leave":
		err = h.handleLeave(s, i)

	case "quote":
		err = h.handleQuote(s, i)
	case "help":
		err = h.handleHelp(s, i)

	default:
		err = respondError(s, i, "Unknown command")
	}

	if err != nil {
		h.logger.WithError(err).WithField("command", data.Name).Error("Command handler failed")
	}
}

// Notify implements the session manager's lifecycle notifier
func (h *Handler) Notify(guildID, channelID, message string) {
	if _, err := h.discord.ChannelMessageSend(channelID, message); err != nil {
		h.logger.WithError(err).WithField("guild", guildID).Warn("Failed to send notification")
	}
}

// getUserVoiceChannel gets the user's current voice channel
func (h *Handler) getUserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", err
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, nil
		}
	}

	return "", apperrors.ErrNotInVoiceChannel
}
