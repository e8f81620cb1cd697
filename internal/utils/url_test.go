package utils

import "testing"

func TestCleanTrackingParams(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips si share param",
			input:    "https://www.youtube.com/watch?v=abc123&si=xyz",
			expected: "https://www.youtube.com/watch?v=abc123",
		},
		{
			name:     "strips utm prefix params",
			input:    "https://example.com/a?utm_source=mail&utm_campaign=x&id=7",
			expected: "https://example.com/a?id=7",
		},
		{
			name:     "preserves remaining param order",
			input:    "https://www.youtube.com/watch?v=abc&si=q&list=PL1&index=3",
			expected: "https://www.youtube.com/watch?v=abc&list=PL1&index=3",
		},
		{
			name:     "drops question mark when everything was tracking",
			input:    "https://youtu.be/abc123?si=xyz",
			expected: "https://youtu.be/abc123",
		},
		{
			name:     "no query untouched",
			input:    "https://youtu.be/abc123",
			expected: "https://youtu.be/abc123",
		},
		{
			name:     "empty query untouched",
			input:    "https://example.com/a?",
			expected: "https://example.com/a?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTrackingParams(tt.input); got != tt.expected {
				t.Errorf("CleanTrackingParams(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"watch param", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts path", "https://www.youtube.com/shorts/abc123", "abc123"},
		{"live path", "https://www.youtube.com/live/abc123", "abc123"},
		{"watch with playlist", "https://www.youtube.com/watch?v=abc123&list=PL1", "abc123"},
		{"no id", "https://www.youtube.com/feed/subscriptions", ""},
		{"non youtube", "https://example.com/watch", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VideoID(tt.input); got != tt.expected {
				t.Errorf("VideoID(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPlaylistID(t *testing.T) {
	if got := PlaylistID("https://www.youtube.com/playlist?list=PLabc"); got != "PLabc" {
		t.Errorf("PlaylistID = %q, expected PLabc", got)
	}
	if got := PlaylistID("https://www.youtube.com/watch?v=x"); got != "" {
		t.Errorf("PlaylistID = %q, expected empty", got)
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain file", "https://example.com/music/song.mp3", "song.mp3"},
		{"query stripped", "https://example.com/song.mp3?token=abcd", "song.mp3"},
		{"bare host", "https://example.com", "download"},
		{"trailing slash", "https://example.com/", "download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileNameFromURL(tt.input); got != tt.expected {
				t.Errorf("FileNameFromURL(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeStreamURL(t *testing.T) {
	endpoint := "https://radio.example.net:8000/stream"
	mirrors := []string{"old-radio.example.net", "radio.example.org"}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"known mirror rewritten", "http://old-radio.example.net/listen", endpoint},
		{"mirror match is case-insensitive", "http://Radio.Example.ORG/live", endpoint},
		{"unknown host passes through", "http://other.example.com:9000/stream", "http://other.example.com:9000/stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStreamURL(tt.input, endpoint, mirrors); got != tt.expected {
				t.Errorf("NormalizeStreamURL(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}

	if got := NormalizeStreamURL("http://old-radio.example.net/listen", "", mirrors); got != "http://old-radio.example.net/listen" {
		t.Error("empty endpoint must disable rewriting")
	}
}
