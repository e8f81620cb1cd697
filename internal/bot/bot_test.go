package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func voiceEvent(before, after string) *discordgo.VoiceStateUpdate {
	event := &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{ChannelID: after},
	}
	if before != "" {
		event.BeforeUpdate = &discordgo.VoiceState{ChannelID: before}
	}
	return event
}

func TestVoiceConnectionDropped(t *testing.T) {
	tests := []struct {
		name     string
		event    *discordgo.VoiceStateUpdate
		expected bool
	}{
		{"left channel entirely", voiceEvent("voice-1", ""), true},
		{"joined a channel", voiceEvent("", "voice-1"), false},
		{"moved between channels", voiceEvent("voice-1", "voice-2"), false},
		{"state update within channel", voiceEvent("voice-1", "voice-1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := voiceConnectionDropped(tt.event); got != tt.expected {
				t.Errorf("voiceConnectionDropped = %v, expected %v", got, tt.expected)
			}
		})
	}
}
