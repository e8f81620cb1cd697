package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
)

// handlePlay resolves the query and enqueues the result
func (h *Handler) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferResponse(s, i); err != nil {
		return err
	}

	query := i.ApplicationCommandData().Options[0].StringValue()
	guildID := i.GuildID
	userID := i.Member.User.ID

	channelID, err := h.getUserVoiceChannel(s, guildID, userID)
	if err != nil {
		return followUpError(s, i, "You must be in a voice channel to play music")
	}

	if _, err := h.sessions.Open(guildID, channelID, i.ChannelID); err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}

	// playlist continuations land straight in the queue as they resolve
	enqueue := func(t *entities.Track) {
		if _, err := h.sessions.Enqueue(guildID, t); err != nil {
			h.logger.WithError(err).WithField("guild", guildID).Warn("Failed to enqueue playlist continuation")
			return
		}
		if err := h.sessions.StartIfIdle(guildID); err != nil {
			h.logger.WithError(err).WithField("guild", guildID).Warn("Failed to start playback")
		}
	}

	res, err := h.resolver.Resolve(context.Background(), query, userID, guildID, enqueue)
	if err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}

	position := 0
	for _, t := range res.Tracks {
		if position, err = h.sessions.Enqueue(guildID, t); err != nil {
			return followUpError(s, i, apperrors.GetUserMessage(err))
		}
	}
	if err := h.sessions.StartIfIdle(guildID); err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}

	if res.Playlist != nil {
		embed := NewEmbed().
			Title("Playlist Added").
			Description(fmt.Sprintf("**%s**\n%d track(s) queued, more may follow", res.Playlist.Title, len(res.Tracks))).
			Color(ColorSuccess).
			Build()
		return followUpEmbed(s, i, embed)
	}

	track := res.Tracks[0]
	embed := NewEmbed().
		Title("Added to Queue").
		Description(fmt.Sprintf("**%s**", track.DisplayName())).
		Field("Duration", track.Duration, true).
		Field("Position", fmt.Sprintf("#%d", position), true).
		Thumbnail(track.Thumbnail).
		Color(ColorSuccess).
		Build()
	return followUpEmbed(s, i, embed)
}

// handlePlayDB searches the music library and queues the best match
func (h *Handler) handlePlayDB(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if h.library == nil {
		return respondError(s, i, "The music library is not available")
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}

	query := i.ApplicationCommandData().Options[0].StringValue()
	guildID := i.GuildID
	userID := i.Member.User.ID

	channelID, err := h.getUserVoiceChannel(s, guildID, userID)
	if err != nil {
		return followUpError(s, i, "You must be in a voice channel to play music")
	}

	matches, err := h.library.SearchByTitle(context.Background(), query, userID, guildID, 1)
	if err != nil {
		h.logger.WithError(err).Error("Library search failed")
		return followUpError(s, i, "Library search failed")
	}
	if len(matches) == 0 {
		return followUpError(s, i, "No library track matches: "+query)
	}

	if _, err := h.sessions.Open(guildID, channelID, i.ChannelID); err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}

	track := matches[0]
	position, err := h.sessions.Enqueue(guildID, track)
	if err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}
	if err := h.sessions.StartIfIdle(guildID); err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}

	embed := NewEmbed().
		Title("Added from Library").
		Description(fmt.Sprintf("**%s**", track.DisplayName())).
		Field("Position", fmt.Sprintf("#%d", position), true).
		Color(ColorSuccess).
		Build()
	return followUpEmbed(s, i, embed)
}

// handlePause pauses the current playback
func (h *Handler) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.sessions.Pause(i.GuildID); err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	return respondSuccess(s, i, "Playback paused")
}

// handleResume resumes paused playback
func (h *Handler) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.sessions.Resume(i.GuildID); err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	return respondSuccess(s, i, "Playback resumed")
}

// handleSkip advances to the next track
func (h *Handler) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	next, err := h.sessions.Skip(i.GuildID)
	if err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	if next == nil {
		return respondSuccess(s, i, "Skipped. The queue is now empty.")
	}
	return respondSuccess(s, i, "Now playing: **"+next.DisplayName()+"**")
}

// handleRecover restarts a stuck player
func (h *Handler) handleRecover(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.sessions.Recover(i.GuildID); err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	return respondSuccess(s, i, "Playback recovered")
}

// handleRestore re-queues the tracks saved before the last restart. Each
// saved track goes through normal resolution again, so the command also
// repairs stale URLs.
func (h *Handler) handleRestore(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	guildID := i.GuildID
	userID := i.Member.User.ID

	saved := h.keeper.Pending(guildID)
	if len(saved) == 0 {
		return respondError(s, i, "No saved queue found for this server")
	}

	channelID, err := h.getUserVoiceChannel(s, guildID, userID)
	if err != nil {
		return respondError(s, i, "You must be in a voice channel to restore the queue")
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}

	if _, err := h.sessions.Open(guildID, channelID, i.ChannelID); err != nil {
		return followUpError(s, i, apperrors.GetUserMessage(err))
	}

	go h.restoreQueue(guildID, userID, saved)

	return followUpSuccess(s, i, fmt.Sprintf("Restoring %d track(s) from the saved queue", len(saved)))
}

func (h *Handler) restoreQueue(guildID, userID string, saved []*entities.Track) {
	restored := 0
	for _, old := range saved {
		res, err := h.resolver.Resolve(context.Background(), old.URL, userID, guildID, func(t *entities.Track) {
			h.sessions.Enqueue(guildID, t)
		})
		if err != nil {
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"guild": guildID,
				"track": old.DisplayName(),
			}).Warn("Failed to restore track")
			continue
		}
		for _, t := range res.Tracks {
			if _, err := h.sessions.Enqueue(guildID, t); err != nil {
				h.logger.WithError(err).WithField("guild", guildID).Warn("Failed to enqueue restored track")
				continue
			}
			restored++
		}
		if err := h.sessions.StartIfIdle(guildID); err != nil {
			h.logger.WithError(err).WithField("guild", guildID).Warn("Failed to start restored playback")
		}
	}

	h.logger.WithFields(map[string]interface{}{
		"guild":    guildID,
		"restored": restored,
		"saved":    len(saved),
	}).Info("Queue restore finished")
}
