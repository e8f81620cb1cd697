package commands

import "github.com/bwmarrin/discordgo"

func minValue(v float64) *float64 { return &v }

// GetCommands returns all slash command definitions
func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		// Playback
		{
			Name:        "play",
			Description: "Play music from a URL, stream, or search query",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "URL (YouTube/Spotify/stream) or search query",
					Required:    true,
				},
			},
		},
		{
			Name:        "playdb",
			Description: "Play a track from the music library",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Track title to search for",
					Required:    true,
				},
			},
		},
		{
			Name:        "pause",
			Description: "Pause the current playback",
		},
		{
			Name:        "resume",
			Description: "Resume paused playback",
		},
		{
			Name:        "skip",
			Description: "Skip to the next track",
		},
		{
			Name:        "recover",
			Description: "Restart playback when the player is stuck",
		},

		// Queue
		{
			Name:        "queue",
			Description: "Display the current queue",
		},
		{
			Name:        "nowplaying",
			Description: "Show the currently playing track",
		},
		{
			Name:        "shuffle",
			Description: "Shuffle the upcoming tracks",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "algorithm",
					Description: "Shuffle algorithm",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Fisher-Yates", Value: "fisher-yates"},
						{Name: "Durstenfeld", Value: "durstenfeld"},
						{Name: "Sattolo", Value: "sattolo"},
					},
				},
			},
		},
		{
			Name:        "move",
			Description: "Move a queued track to another position",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "from",
					Description: "Current position (1-based)",
					Required:    true,
					MinValue:    minValue(1),
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "to",
					Description: "Target position (1-based)",
					Required:    true,
					MinValue:    minValue(1),
				},
			},
		},
		{
			Name:        "remove",
			Description: "Remove one or more tracks from the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "position",
					Description: "Position of the first track to remove (1-based)",
					Required:    true,
					MinValue:    minValue(1),
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many tracks to remove",
					Required:    false,
					MinValue:    minValue(1),
				},
			},
		},
		{
			Name:        "repeat",
			Description: "Configure repeat mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Repeat mode",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: "off"},
						{Name: "Single Track", Value: "track"},
						{Name: "Entire Queue", Value: "queue"},
					},
				},
			},
		},
		{
			Name:        "restore",
			Description: "Restore the queue saved before the last restart",
		},
		{
			Name:        "leave",
			Description: "Disconnect from the voice channel, keeping the queue",
		},

		// Utility
		{
			Name:        "quote",
			Description: "Show a random quote",
		},
		{
			Name:        "help",
			Description: "Show available commands",
		},
	}
}
