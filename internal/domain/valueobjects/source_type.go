package valueobjects

import (
	"regexp"
	"strings"
)

// SourceType represents the type of media source a raw query resolves to
type SourceType string

const (
	SourceTypeStream          SourceType = "stream"
	SourceTypeExternalURL     SourceType = "external_url"
	SourceTypeYouTubeVideo    SourceType = "youtube_video"
	SourceTypeYouTubePlaylist SourceType = "youtube_playlist"
	SourceTypeSpotify         SourceType = "spotify"
	SourceTypeSearchTerm      SourceType = "search_term"
)

// String returns the string representation
func (s SourceType) String() string {
	return string(s)
}

// IsValid checks if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeStream, SourceTypeExternalURL, SourceTypeYouTubeVideo,
		SourceTypeYouTubePlaylist, SourceTypeSpotify, SourceTypeSearchTerm:
		return true
	}
	return false
}

var (
	portPattern = regexp.MustCompile(`:\d+`)

	// Substrings that mark a direct audio stream rather than a downloadable page
	streamMarkers = []string{"/stream", ".m3u8", ".pls", "icecast"}
)

// DetectSourceType classifies a raw user query.
//
// The order is load-bearing: playlist and video markers must win over the
// generic-URL branch, otherwise a YouTube link would be treated as a plain
// download target.
func DetectSourceType(input string) SourceType {
	input = strings.TrimSpace(input)
	lower := strings.ToLower(input)

	if strings.Contains(lower, "spotify.com") {
		return SourceTypeSpotify
	}
	if strings.Contains(lower, "list=") {
		return SourceTypeYouTubePlaylist
	}
	if strings.Contains(lower, "watch?v=") || strings.Contains(lower, "youtu.be/") {
		return SourceTypeYouTubeVideo
	}

	if rest, ok := stripScheme(lower); ok {
		if hasStreamMarker(rest) || strings.Contains(rest, ":") {
			return SourceTypeStream
		}
		return SourceTypeExternalURL
	}

	// No scheme: a port suffix or stream marker still identifies a raw stream
	if hasStreamMarker(lower) || portPattern.MatchString(lower) {
		return SourceTypeStream
	}

	return SourceTypeSearchTerm
}

func stripScheme(input string) (string, bool) {
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(input, scheme) {
			return strings.TrimPrefix(input, scheme), true
		}
	}
	return input, false
}

func hasStreamMarker(input string) bool {
	for _, marker := range streamMarkers {
		if strings.Contains(input, marker) {
			return true
		}
	}
	return false
}
