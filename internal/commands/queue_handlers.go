package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
)

const queuePageSize = 10

// handleQueue displays the current queue
func (h *Handler) handleQueue(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := h.sessions.Get(i.GuildID)
	if !ok {
		return respondError(s, i, apperrors.GetUserMessage(apperrors.ErrNoSession))
	}

	current := sess.CurrentTrack()
	tracks := sess.Tracks()

	if current == nil && len(tracks) == 0 {
		return respondError(s, i, apperrors.GetUserMessage(apperrors.ErrQueueEmpty))
	}

	var b strings.Builder
	if current != nil {
		fmt.Fprintf(&b, "**Now playing:** %s (%s)\n\n", current.DisplayName(), current.Duration)
	}
	for idx, t := range tracks {
		if idx == queuePageSize {
			fmt.Fprintf(&b, "...and %d more", len(tracks)-queuePageSize)
			break
		}
		fmt.Fprintf(&b, "`%d.` %s (%s)\n", idx+1, t.DisplayName(), t.Duration)
	}

	embed := NewEmbed().
		Title(fmt.Sprintf("Queue — %d track(s)", len(tracks))).
		Description(b.String()).
		Color(ColorInfo).
		Footer("Repeat: " + string(sess.GetRepeatMode())).
		Build()
	return respondEmbed(s, i, embed)
}

// handleNowPlaying shows the current track with elapsed time
func (h *Handler) handleNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := h.sessions.Get(i.GuildID)
	if !ok {
		return respondError(s, i, apperrors.GetUserMessage(apperrors.ErrNoSession))
	}

	current := sess.CurrentTrack()
	if current == nil {
		return respondError(s, i, apperrors.GetUserMessage(apperrors.ErrNotPlaying))
	}

	position := formatElapsed(current)

	embed := NewEmbed().
		Title("Now Playing").
		Description(fmt.Sprintf("**%s**", current.DisplayName())).
		Field("Position", position, true).
		Field("Requested by", "<@"+current.RequestedBy+">", true).
		Thumbnail(current.Thumbnail).
		Color(ColorPrimary).
		Build()
	return respondEmbed(s, i, embed)
}

func formatElapsed(t *entities.Track) string {
	if t.IsLive() {
		return "live"
	}
	elapsed := t.Elapsed()
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%d:%02d / %s", minutes, seconds, t.Duration)
}

// handleShuffle shuffles upcoming tracks with the chosen algorithm
func (h *Handler) handleShuffle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	algorithm := ""
	if options := i.ApplicationCommandData().Options; len(options) > 0 {
		algorithm = options[0].StringValue()
	}

	if err := h.sessions.Shuffle(i.GuildID, algorithm); err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	return respondSuccess(s, i, "Queue shuffled")
}

// handleMove moves a queued track to a new position
func (h *Handler) handleMove(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	from := int(options[0].IntValue())
	to := int(options[1].IntValue())

	if err := h.sessions.MoveTrack(i.GuildID, from, to); err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	return respondSuccess(s, i, fmt.Sprintf("Moved track #%d to #%d", from, to))
}

// handleRemove removes a range of tracks from the queue
func (h *Handler) handleRemove(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	position := int(options[0].IntValue())
	count := 1
	if len(options) > 1 {
		count = int(options[1].IntValue())
	}

	removed, err := h.sessions.RemoveTracks(i.GuildID, position, count)
	if err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}

	if len(removed) == 1 {
		return respondSuccess(s, i, "Removed **"+removed[0].DisplayName()+"**")
	}
	return respondSuccess(s, i, fmt.Sprintf("Removed %d tracks", len(removed)))
}

// handleRepeat sets the repeat mode
func (h *Handler) handleRepeat(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	mode := i.ApplicationCommandData().Options[0].StringValue()

	sess, ok := h.sessions.Get(i.GuildID)
	if !ok {
		return respondError(s, i, apperrors.GetUserMessage(apperrors.ErrNoSession))
	}

	sess.SetRepeatMode(entities.RepeatMode(mode))
	return respondSuccess(s, i, "Repeat mode set to **"+mode+"**")
}

// handleLeave disconnects but keeps the session for a later revival
func (h *Handler) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.sessions.Leave(i.GuildID); err != nil {
		return respondError(s, i, apperrors.GetUserMessage(err))
	}
	return respondSuccess(s, i, "Left the voice channel. The queue is kept until I restart.")
}

// handleQuote shows a random stored quote
func (h *Handler) handleQuote(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if h.quotes == nil {
		return respondError(s, i, "Quotes are not available")
	}

	quote, err := h.quotes.Random(context.Background(), i.GuildID)
	if err != nil {
		h.logger.WithError(err).Error("Quote lookup failed")
		return respondError(s, i, "No quotes found")
	}

	embed := NewEmbed().
		Description(fmt.Sprintf("\"%s\"", quote.Content)).
		Footer("— " + quote.Author).
		Color(ColorInfo).
		Build()
	return respondEmbed(s, i, embed)
}

// handleHelp lists the available commands
func (h *Handler) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	var b strings.Builder
	for _, cmd := range GetCommands() {
		fmt.Fprintf(&b, "`/%s` — %s\n", cmd.Name, cmd.Description)
	}

	embed := NewEmbed().
		Title(h.config.BotName + " Commands").
		Description(b.String()).
		Color(ColorPrimary).
		Footer("Version " + h.config.Version).
		Build()
	return respondEmbed(s, i, embed)
}
