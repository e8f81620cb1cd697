package fallback

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/cache"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/downloader"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/utils"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// MaxPlaylistItems bounds bulk enqueue: larger playlists are rejected before
// any download starts
const MaxPlaylistItems = 32

// Downloader is the worker boundary; tests inject fakes
type Downloader interface {
	Run(ctx context.Context, req downloader.Request) (*downloader.Result, error)
	Enumerate(ctx context.Context, playlistURL string) ([]downloader.PlaylistEntry, error)
}

// VideoInfo is a search-index hit
type VideoInfo struct {
	ID       string
	Title    string
	Channel  string
	Duration string // colon format, e.g. "3:20" or "1:05:20"
}

// SearchIndex is the external free-text index consulted when no direct URL
// is available, and for metadata-only lookups after a download
type SearchIndex interface {
	Search(ctx context.Context, query string) ([]VideoInfo, error)
}

// Service is the fallback resolution path used when the primary YouTube
// extractor fails or is disabled: cache check, worker download under a hard
// wall-clock timeout, metadata lookup, cache write.
type Service struct {
	cache   *cache.Store
	worker  Downloader
	index   SearchIndex
	timeout time.Duration
	logger  *logger.Logger
}

// NewService builds a fallback service. timeout bounds each download
// round-trip end to end, independent of the worker's internal retries.
func NewService(store *cache.Store, worker Downloader, index SearchIndex, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		cache:   store,
		worker:  worker,
		index:   index,
		timeout: timeout,
		logger:  log,
	}
}

// GetVideo resolves a single video URL to a locally cached track. Repeated
// calls for the same derived identifier hit the cache and perform no
// download.
func (s *Service) GetVideo(ctx context.Context, rawURL, requestedBy, guildID string) (*entities.Track, error) {
	id := utils.VideoID(rawURL)
	if id == "" {
		return nil, fmt.Errorf("%w: no video identifier in %q", apperrors.ErrNoTrackFound, rawURL)
	}

	if entry, ok := s.cache.Get(id); ok {
		s.logger.WithField("id", id).Debug("Download cache hit")
		return s.trackFromEntry(entry, requestedBy, guildID), nil
	}

	cleanURL := utils.CleanTrackingParams(rawURL)
	outPath := s.cache.AudioPath(id)

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.worker.Run(dctx, downloader.Request{VideoURL: cleanURL, FilePath: outPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDownloadFailed, err)
	}

	meta := s.lookupMetadata(ctx, id, cleanURL)
	entry, err := s.cache.Put(id, result.FilePath, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDownloadFailed, err)
	}

	return s.trackFromEntry(entry, requestedBy, guildID), nil
}

// SearchVideo resolves a free-text query through the search index and feeds
// the first hit through the single-video path
func (s *Service) SearchVideo(ctx context.Context, query, requestedBy, guildID string) (*entities.Track, error) {
	hits, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNoTrackFound, err)
	}
	if len(hits) == 0 {
		return nil, apperrors.ErrNoTrackFound
	}

	videoURL := "https://www.youtube.com/watch?v=" + hits[0].ID
	return s.GetVideo(ctx, videoURL, requestedBy, guildID)
}

// GetPlaylist resolves a playlist URL. The first item is resolved
// synchronously and returned so playback can start; the remaining items are
// resolved by a background goroutine that calls enqueue for each finished
// track in source order. A failure partway through the background work
// aborts the rest and is logged, not reported to the caller.
func (s *Service) GetPlaylist(ctx context.Context, rawURL, requestedBy, guildID string, enqueue func(*entities.Track)) (*entities.Track, error) {
	entries, err := s.worker.Enumerate(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNoTrackFound, err)
	}
	if len(entries) == 0 {
		return nil, apperrors.ErrNoTrackFound
	}
	if len(entries) > MaxPlaylistItems {
		return nil, fmt.Errorf("%w: %d items (limit %d)", apperrors.ErrPlaylistTooLarge, len(entries), MaxPlaylistItems)
	}

	if plID := utils.PlaylistID(rawURL); plID != "" {
		items := make([]cache.PlaylistItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, cache.PlaylistItem{VideoID: e.ID, Title: e.Title, URL: e.URL})
		}
		if err := s.cache.SavePlaylist(cache.PlaylistSnapshot{ID: plID, URL: rawURL, Items: items}); err != nil {
			s.logger.WithError(err).Warn("Failed to save playlist snapshot")
		}
	}

	first, err := s.GetVideo(ctx, entries[0].URL, requestedBy, guildID)
	if err != nil {
		return nil, err
	}

	if len(entries) > 1 && enqueue != nil {
		go s.continuePlaylist(entries[1:], requestedBy, guildID, enqueue)
	}
	return first, nil
}

// continuePlaylist resolves the remainder of a playlist sequentially so
// tracks are appended in source order. The first failure aborts the rest.
func (s *Service) continuePlaylist(entries []downloader.PlaylistEntry, requestedBy, guildID string, enqueue func(*entities.Track)) {
	for i, entry := range entries {
		track, err := s.GetVideo(context.Background(), entry.URL, requestedBy, guildID)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"guild":     guildID,
				"resolved":  i,
				"remaining": len(entries) - i,
			}).Error("Playlist continuation aborted")
			return
		}
		enqueue(track)
	}

	s.logger.WithFields(map[string]interface{}{
		"guild":  guildID,
		"tracks": len(entries),
	}).Info("Playlist continuation finished")
}

// lookupMetadata fetches authoritative title/author/duration for a video,
// best-effort: a miss degrades to URL-derived metadata rather than failing
// the download.
func (s *Service) lookupMetadata(ctx context.Context, id, cleanURL string) cache.Metadata {
	meta := cache.Metadata{ID: id, Title: id, URL: cleanURL}

	hits, err := s.index.Search(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Metadata lookup failed, keeping minimal metadata")
		return meta
	}

	for _, hit := range hits {
		if hit.ID == id {
			meta.Title = hit.Title
			meta.Author = hit.Channel
			meta.DurationMS = parseColonDuration(hit.Duration).Milliseconds()
			meta.Thumbnail = "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
			break
		}
	}
	return meta
}

func (s *Service) trackFromEntry(entry *cache.Entry, requestedBy, guildID string) *entities.Track {
	meta := valueobjects.NewGenericMetadata("fallback", entry.Meta.URL, entry.FilePath)
	track := entities.NewTrack(entry.Meta.Title, entry.Meta.Author, entry.Meta.URL, entry.Meta.DurationMS, meta, requestedBy, guildID)
	track.Thumbnail = entry.Meta.Thumbnail
	return track
}

// parseColonDuration parses durations like "3:20" or "1:05:20"
func parseColonDuration(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
