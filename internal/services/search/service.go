package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/resolver"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/downloader"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/fallback"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/spotify"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/utils"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// PlaylistLister enumerates playlist entries without downloading them
type PlaylistLister interface {
	Enumerate(ctx context.Context, playlistURL string) ([]downloader.PlaylistEntry, error)
}

// SpotifyLookup resolves Spotify track IDs to their metadata
type SpotifyLookup interface {
	GetTrack(ctx context.Context, trackID string) (*spotify.Track, error)
}

// Service is the primary search/extractor: it answers engine-hinted queries
// with normalized tracks backed by streamable URLs, without downloading
// anything itself.
type Service struct {
	index   fallback.SearchIndex
	lister  PlaylistLister
	spotify SpotifyLookup // nil when credentials are not configured
	logger  *logger.Logger
}

// NewService creates the primary extractor. spotifyClient may be nil; spotify
// queries then fail with an unsupported-input error.
func NewService(index fallback.SearchIndex, lister PlaylistLister, spotifyClient SpotifyLookup, log *logger.Logger) *Service {
	return &Service{
		index:   index,
		lister:  lister,
		spotify: spotifyClient,
		logger:  log,
	}
}

// Search dispatches on the engine hint
func (s *Service) Search(ctx context.Context, req resolver.SearchRequest) (*resolver.SearchResult, error) {
	switch req.Engine {
	case resolver.EngineFile:
		return s.searchFile(req)
	case resolver.EngineYouTubeSearch:
		return s.searchYouTube(ctx, req)
	case resolver.EngineYouTubePlaylist:
		return s.searchPlaylist(ctx, req)
	case resolver.EngineSpotifySearch:
		return s.searchSpotify(ctx, req)
	default:
		return s.searchAuto(ctx, req)
	}
}

// searchAuto handles direct URLs: YouTube watch links get index metadata,
// anything else becomes a pass-through track for the player to stream
func (s *Service) searchAuto(ctx context.Context, req resolver.SearchRequest) (*resolver.SearchResult, error) {
	if id := utils.VideoID(req.Query); id != "" {
		if track, err := s.trackFromIndex(ctx, id, req); err == nil {
			return &resolver.SearchResult{Tracks: []*entities.Track{track}}, nil
		}
		// index miss is not fatal for a direct link; fall through to the
		// pass-through track
	}

	if !strings.Contains(req.Query, ":") {
		return nil, apperrors.ErrUnsupportedInput
	}

	title := utils.FileNameFromURL(req.Query)
	if title == "" {
		title = req.Query
	}
	track := entities.NewTrack(title, "", req.Query, 0,
		valueobjects.NewGenericMetadata("http", req.Query, ""),
		req.RequestedBy, req.GuildID)
	return &resolver.SearchResult{Tracks: []*entities.Track{track}}, nil
}

// searchYouTube returns the first index hit for a free-text query
func (s *Service) searchYouTube(ctx context.Context, req resolver.SearchRequest) (*resolver.SearchResult, error) {
	hits, err := s.index.Search(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 {
		return nil, apperrors.ErrNoTrackFound
	}
	track := s.trackFromHit(hits[0], req)
	return &resolver.SearchResult{Tracks: []*entities.Track{track}}, nil
}

// searchPlaylist enumerates the playlist and returns every entry as a
// streamable track
func (s *Service) searchPlaylist(ctx context.Context, req resolver.SearchRequest) (*resolver.SearchResult, error) {
	entries, err := s.lister.Enumerate(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("playlist enumeration: %w", err)
	}
	if len(entries) == 0 {
		return nil, apperrors.ErrNoTrackFound
	}
	if len(entries) > fallback.MaxPlaylistItems {
		return nil, fmt.Errorf("%w: %d items (limit %d)", apperrors.ErrPlaylistTooLarge, len(entries), fallback.MaxPlaylistItems)
	}

	tracks := make([]*entities.Track, 0, len(entries))
	for _, entry := range entries {
		tracks = append(tracks, entities.NewTrack(entry.Title, "", entry.URL, 0,
			valueobjects.NewGenericMetadata("youtube", entry.URL, ""),
			req.RequestedBy, req.GuildID))
	}

	playlistID := utils.PlaylistID(req.Query)
	return &resolver.SearchResult{
		Tracks: tracks,
		Playlist: &resolver.PlaylistInfo{
			Title: fmt.Sprintf("Playlist %s (%d tracks)", playlistID, len(tracks)),
			URL:   req.Query,
		},
	}, nil
}

// searchSpotify resolves the Spotify track to its metadata and locates a
// matching YouTube upload through the index
func (s *Service) searchSpotify(ctx context.Context, req resolver.SearchRequest) (*resolver.SearchResult, error) {
	if s.spotify == nil {
		return nil, fmt.Errorf("%w: spotify support is not configured", apperrors.ErrUnsupportedInput)
	}

	trackID, err := spotify.ParseTrackID(req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedInput, err)
	}

	meta, err := s.spotify.GetTrack(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("spotify lookup: %w", err)
	}

	hits, err := s.index.Search(ctx, meta.SearchQuery())
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 {
		return nil, apperrors.ErrNoTrackFound
	}

	hit := hits[0]
	track := entities.NewTrack(meta.Name, meta.Artist(),
		"https://www.youtube.com/watch?v="+hit.ID, meta.DurationMS,
		valueobjects.NewGenericMetadata("spotify", req.Query, ""),
		req.RequestedBy, req.GuildID)
	track.Thumbnail = meta.Thumbnail()
	return &resolver.SearchResult{Tracks: []*entities.Track{track}}, nil
}

// searchFile wraps an existing local file as a track
func (s *Service) searchFile(req resolver.SearchRequest) (*resolver.SearchResult, error) {
	info, err := os.Stat(req.Query)
	if err != nil || info.IsDir() {
		return nil, apperrors.ErrNoTrackFound
	}

	name := filepath.Base(req.Query)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	track := entities.NewTrack(title, "", req.Query, 0,
		valueobjects.NewGenericMetadata("file", req.Query, req.Query),
		req.RequestedBy, req.GuildID)
	return &resolver.SearchResult{Tracks: []*entities.Track{track}}, nil
}

// trackFromIndex looks up one video ID in the index and requires an exact
// ID match among the hits
func (s *Service) trackFromIndex(ctx context.Context, id string, req resolver.SearchRequest) (*entities.Track, error) {
	hits, err := s.index.Search(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, hit := range hits {
		if hit.ID == id {
			return s.trackFromHit(hit, req), nil
		}
	}
	return nil, apperrors.ErrNoTrackFound
}

func (s *Service) trackFromHit(hit fallback.VideoInfo, req resolver.SearchRequest) *entities.Track {
	watchURL := "https://www.youtube.com/watch?v=" + hit.ID
	track := entities.NewTrack(hit.Title, hit.Channel, watchURL,
		colonDurationMS(hit.Duration),
		valueobjects.NewGenericMetadata("youtube", watchURL, ""),
		req.RequestedBy, req.GuildID)
	track.Thumbnail = "https://i.ytimg.com/vi/" + hit.ID + "/hqdefault.jpg"
	return track
}

// colonDurationMS parses "3:20" or "1:05:20" style durations
func colonDurationMS(s string) int64 {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := time.Duration(0)
	for _, part := range parts {
		n := 0
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return 0
			}
			n = n*10 + int(ch-'0')
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return total.Milliseconds()
}
