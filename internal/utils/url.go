package utils

import (
	"net/url"
	"path"
	"strings"
)

// Tracking parameters stripped before a URL is handed to any extractor or
// the download worker. Share links carry these; they change nothing about
// the target media but break cache-key stability.
var trackingParams = map[string]bool{
	"si":      true,
	"pp":      true,
	"feature": true,
	"fbclid":  true,
	"gclid":   true,
}

// CleanTrackingParams removes tracking query parameters while preserving the
// order of the remaining ones. Inputs that do not parse are returned as-is.
func CleanTrackingParams(raw string) string {
	base, query, found := strings.Cut(raw, "?")
	if !found || query == "" {
		return raw
	}

	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(query, "&") {
		key, _, _ := strings.Cut(pair, "=")
		if trackingParams[key] || strings.HasPrefix(key, "utm_") {
			continue
		}
		kept = append(kept, pair)
	}

	if len(kept) == 0 {
		return base
	}
	return base + "?" + strings.Join(kept, "&")
}

// VideoID derives the stable video identifier from a YouTube URL. Returns
// an empty string when none is present.
func VideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if v := u.Query().Get("v"); v != "" {
		return v
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	if strings.HasPrefix(u.Path, "/shorts/") || strings.HasPrefix(u.Path, "/live/") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return ""
}

// PlaylistID derives the playlist identifier from a YouTube URL
func PlaylistID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("list")
}

// FileNameFromURL derives a local file name for a generic download target:
// the last path element with the query string stripped, so the extension
// survives share links like "…/song.mp3?token=x".
func FileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		// Strip the query by hand and fall back to the raw tail
		base, _, _ := strings.Cut(raw, "?")
		return path.Base(base)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

// NormalizeStreamURL maps well-known mirror URLs onto the canonical stream
// endpoint. Anything that matches no mirror passes through untouched.
func NormalizeStreamURL(raw, endpoint string, mirrors []string) string {
	if endpoint == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	for _, mirror := range mirrors {
		if mirror != "" && strings.Contains(lower, strings.ToLower(mirror)) {
			return endpoint
		}
	}
	return raw
}
