package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/utils"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// SearchEngine is the hint passed to the primary extractor
type SearchEngine string

const (
	EngineAuto            SearchEngine = "auto"
	EngineFile            SearchEngine = "file"
	EngineYouTubeSearch   SearchEngine = "youtube-search"
	EngineYouTubePlaylist SearchEngine = "youtube-playlist"
	EngineSpotifySearch   SearchEngine = "spotify-search"
)

// SearchRequest is one primary-extractor call
type SearchRequest struct {
	Query       string
	Engine      SearchEngine
	RequestedBy string
	GuildID     string
}

// PlaylistInfo identifies a resolved playlist
type PlaylistInfo struct {
	Title string
	URL   string
}

// SearchResult is the primary extractor's answer
type SearchResult struct {
	Tracks   []*entities.Track
	Playlist *PlaylistInfo
}

// Searcher is the pluggable primary search/extractor capability
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
}

// Fallback is the secondary resolution path taken when the primary YouTube
// extractor fails
type Fallback interface {
	GetVideo(ctx context.Context, rawURL, requestedBy, guildID string) (*entities.Track, error)
	SearchVideo(ctx context.Context, query, requestedBy, guildID string) (*entities.Track, error)
	GetPlaylist(ctx context.Context, rawURL, requestedBy, guildID string, enqueue func(*entities.Track)) (*entities.Track, error)
}

// Config carries the stream normalization table and the download directory
// for generic URL targets
type Config struct {
	StreamEndpoint string
	StreamMirrors  []string
	DownloadDir    string
}

// Resolution is the pipeline's output: one or more normalized tracks, plus
// playlist identity when the input was a playlist
type Resolution struct {
	SourceType valueobjects.SourceType
	Tracks     []*entities.Track
	Playlist   *PlaylistInfo
}

// Resolver turns raw user queries into playable tracks: classify the input,
// dispatch to the primary extractor or the fallback pipeline, normalize the
// result.
type Resolver struct {
	searcher   Searcher
	fallback   Fallback
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a resolution pipeline
func New(searcher Searcher, fb Fallback, cfg Config, log *logger.Logger) *Resolver {
	return &Resolver{
		searcher:   searcher,
		fallback:   fb,
		cfg:        cfg,
		httpClient: http.DefaultClient,
		logger:     log,
	}
}

// Resolve classifies input and resolves it to tracks. For playlists the
// returned tracks may grow asynchronously: remaining items are delivered
// through enqueue as a background task completes them.
func (r *Resolver) Resolve(ctx context.Context, input, requestedBy, guildID string, enqueue func(*entities.Track)) (*Resolution, error) {
	kind := valueobjects.DetectSourceType(input)

	r.logger.WithFields(map[string]interface{}{
		"source": kind,
		"guild":  guildID,
	}).Info("Resolving query")

	switch kind {
	case valueobjects.SourceTypeSpotify:
		return r.resolveSingle(ctx, kind, input, EngineSpotifySearch, requestedBy, guildID)
	case valueobjects.SourceTypeYouTubeVideo:
		return r.resolveYouTubeVideo(ctx, input, requestedBy, guildID)
	case valueobjects.SourceTypeYouTubePlaylist:
		return r.resolvePlaylist(ctx, input, requestedBy, guildID, enqueue)
	case valueobjects.SourceTypeStream:
		return r.resolveStream(ctx, input, requestedBy, guildID)
	case valueobjects.SourceTypeExternalURL:
		return r.resolveExternalURL(ctx, input, requestedBy, guildID)
	default:
		return r.resolveSearchTerm(ctx, input, requestedBy, guildID)
	}
}

// resolveSingle runs a primary search and keeps the first track
func (r *Resolver) resolveSingle(ctx context.Context, kind valueobjects.SourceType, query string, engine SearchEngine, requestedBy, guildID string) (*Resolution, error) {
	result, err := r.searcher.Search(ctx, SearchRequest{
		Query:       query,
		Engine:      engine,
		RequestedBy: requestedBy,
		GuildID:     guildID,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Tracks) == 0 {
		return nil, apperrors.ErrNoTrackFound
	}
	return &Resolution{SourceType: kind, Tracks: result.Tracks[:1]}, nil
}

// resolveYouTubeVideo strips tracking parameters, tries the primary
// extractor and falls back to the download pipeline when it fails
func (r *Resolver) resolveYouTubeVideo(ctx context.Context, input, requestedBy, guildID string) (*Resolution, error) {
	cleanURL := utils.CleanTrackingParams(input)

	res, err := r.resolveSingle(ctx, valueobjects.SourceTypeYouTubeVideo, cleanURL, EngineAuto, requestedBy, guildID)
	if err == nil {
		return res, nil
	}

	r.logger.WithError(err).WithField("guild", guildID).Info("Primary extractor failed, taking fallback path")

	track, fbErr := r.fallback.GetVideo(ctx, cleanURL, requestedBy, guildID)
	if fbErr != nil {
		return nil, fbErr
	}
	return &Resolution{SourceType: valueobjects.SourceTypeYouTubeVideo, Tracks: []*entities.Track{track}}, nil
}

// resolveSearchTerm searches the primary extractor, falling back to the
// external search index
func (r *Resolver) resolveSearchTerm(ctx context.Context, input, requestedBy, guildID string) (*Resolution, error) {
	res, err := r.resolveSingle(ctx, valueobjects.SourceTypeSearchTerm, input, EngineYouTubeSearch, requestedBy, guildID)
	if err == nil {
		return res, nil
	}

	track, fbErr := r.fallback.SearchVideo(ctx, input, requestedBy, guildID)
	if fbErr != nil {
		return nil, fbErr
	}
	return &Resolution{SourceType: valueobjects.SourceTypeSearchTerm, Tracks: []*entities.Track{track}}, nil
}

// resolvePlaylist returns every contained track; when the primary extractor
// cannot serve the playlist, the fallback streams it: first track now, the
// rest through enqueue
func (r *Resolver) resolvePlaylist(ctx context.Context, input, requestedBy, guildID string, enqueue func(*entities.Track)) (*Resolution, error) {
	cleanURL := utils.CleanTrackingParams(input)

	result, err := r.searcher.Search(ctx, SearchRequest{
		Query:       cleanURL,
		Engine:      EngineYouTubePlaylist,
		RequestedBy: requestedBy,
		GuildID:     guildID,
	})
	if err == nil {
		if result.Playlist == nil || len(result.Tracks) == 0 {
			return nil, apperrors.ErrNoTrackFound
		}
		return &Resolution{
			SourceType: valueobjects.SourceTypeYouTubePlaylist,
			Tracks:     result.Tracks,
			Playlist:   result.Playlist,
		}, nil
	}
	if errors.Is(err, apperrors.ErrPlaylistTooLarge) {
		// the fallback enforces the same cap; re-enumerating would only repeat
		// the rejection
		return nil, err
	}

	r.logger.WithError(err).WithField("guild", guildID).Info("Primary playlist extraction failed, taking fallback path")

	first, fbErr := r.fallback.GetPlaylist(ctx, cleanURL, requestedBy, guildID, enqueue)
	if fbErr != nil {
		return nil, fbErr
	}
	return &Resolution{
		SourceType: valueobjects.SourceTypeYouTubePlaylist,
		Tracks:     []*entities.Track{first},
		Playlist:   &PlaylistInfo{URL: cleanURL},
	}, nil
}

// resolveStream normalizes mirror URLs to the canonical endpoint and forces
// the infinite-duration sentinel on the resulting track
func (r *Resolver) resolveStream(ctx context.Context, input, requestedBy, guildID string) (*Resolution, error) {
	normalized := utils.NormalizeStreamURL(input, r.cfg.StreamEndpoint, r.cfg.StreamMirrors)

	res, err := r.resolveSingle(ctx, valueobjects.SourceTypeStream, normalized, EngineAuto, requestedBy, guildID)
	if err != nil {
		return nil, err
	}

	res.Tracks[0].MarkLive()
	return res, nil
}

// resolveExternalURL downloads the target to local storage and resolves it
// as a local file
func (r *Resolver) resolveExternalURL(ctx context.Context, input, requestedBy, guildID string) (*Resolution, error) {
	localPath, err := r.downloadTo(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDownloadFailed, err)
	}

	return r.resolveSingle(ctx, valueobjects.SourceTypeExternalURL, localPath, EngineFile, requestedBy, guildID)
}

// downloadTo fetches a generic URL into the download directory, deriving the
// file name (and extension) from the query-stripped URL path
func (r *Resolver) downloadTo(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	name := utils.FileNameFromURL(rawURL)
	dest := filepath.Join(r.cfg.DownloadDir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		os.Remove(dest)
		return "", err
	}
	if written == 0 {
		os.Remove(dest)
		return "", fmt.Errorf("downloaded file is empty")
	}

	r.logger.WithFields(map[string]interface{}{
		"dest":  dest,
		"bytes": written,
	}).Info("External file downloaded")
	return dest, nil
}
