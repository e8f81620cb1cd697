package fallback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/cache"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/downloader"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

type fakeDownloader struct {
	mu      sync.Mutex
	runs    int
	runErr  error
	slow    time.Duration
	entries []downloader.PlaylistEntry
	enumErr error
}

func (f *fakeDownloader) Run(ctx context.Context, req downloader.Request) (*downloader.Result, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()

	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.slow > 0 {
		select {
		case <-time.After(f.slow):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := os.WriteFile(req.FilePath, []byte("audio"), 0644); err != nil {
		return nil, err
	}
	return &downloader.Result{FilePath: req.FilePath}, nil
}

func (f *fakeDownloader) Enumerate(ctx context.Context, playlistURL string) ([]downloader.PlaylistEntry, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return f.entries, nil
}

func (f *fakeDownloader) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeIndex struct {
	hits []VideoInfo
	err  error
}

func (f *fakeIndex) Search(ctx context.Context, query string) ([]VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func newTestService(t *testing.T, worker *fakeDownloader, index SearchIndex) *Service {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	store, err := cache.NewStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if index == nil {
		index = &fakeIndex{}
	}
	return NewService(store, worker, index, 5*time.Second, log)
}

func TestGetVideoDownloadsOnceAndCaches(t *testing.T) {
	worker := &fakeDownloader{}
	index := &fakeIndex{hits: []VideoInfo{{ID: "abc123", Title: "Cached Song", Channel: "Channel", Duration: "3:20"}}}
	svc := newTestService(t, worker, index)

	track, err := svc.GetVideo(context.Background(), "https://www.youtube.com/watch?v=abc123&si=tracking", "user", "guild")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if track.Title != "Cached Song" || track.Author != "Channel" {
		t.Errorf("track = %q by %q, metadata lookup missed", track.Title, track.Author)
	}
	if track.DurationMS != 200000 {
		t.Errorf("DurationMS = %d, expected 200000", track.DurationMS)
	}
	if worker.runCount() != 1 {
		t.Fatalf("runs = %d, expected 1", worker.runCount())
	}

	// second resolution of the same video hits the cache
	again, err := svc.GetVideo(context.Background(), "https://www.youtube.com/watch?v=abc123", "user2", "guild")
	if err != nil {
		t.Fatalf("second GetVideo: %v", err)
	}
	if worker.runCount() != 1 {
		t.Errorf("runs = %d, cached video must not re-download", worker.runCount())
	}
	if again.Title != "Cached Song" {
		t.Errorf("cached title = %q", again.Title)
	}
	if again.RequestedBy != "user2" {
		t.Error("requester should come from the new request, not the cache")
	}
}

func TestGetVideoRejectsNonVideoURL(t *testing.T) {
	svc := newTestService(t, &fakeDownloader{}, nil)

	if _, err := svc.GetVideo(context.Background(), "https://example.com/page", "user", "guild"); !errors.Is(err, apperrors.ErrNoTrackFound) {
		t.Errorf("err = %v, expected ErrNoTrackFound", err)
	}
}

func TestGetVideoWrapsWorkerFailure(t *testing.T) {
	worker := &fakeDownloader{runErr: errors.New("yt-dlp exploded")}
	svc := newTestService(t, worker, nil)

	_, err := svc.GetVideo(context.Background(), "https://youtu.be/abc123", "user", "guild")
	if !errors.Is(err, apperrors.ErrDownloadFailed) {
		t.Errorf("err = %v, expected ErrDownloadFailed", err)
	}
}

func TestGetVideoTimeoutKillsDownload(t *testing.T) {
	worker := &fakeDownloader{slow: time.Second}
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	store, err := cache.NewStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	svc := NewService(store, worker, &fakeIndex{}, 20*time.Millisecond, log)

	_, err = svc.GetVideo(context.Background(), "https://youtu.be/abc123", "user", "guild")
	if !errors.Is(err, apperrors.ErrDownloadFailed) {
		t.Errorf("err = %v, expected ErrDownloadFailed after timeout", err)
	}
}

func TestGetVideoMetadataLookupFailureDegrades(t *testing.T) {
	worker := &fakeDownloader{}
	svc := newTestService(t, worker, &fakeIndex{err: errors.New("index down")})

	track, err := svc.GetVideo(context.Background(), "https://youtu.be/abc123", "user", "guild")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	// falls back to the id as title instead of failing the download
	if track.Title != "abc123" {
		t.Errorf("title = %q, expected degraded id title", track.Title)
	}
}

func TestSearchVideoUsesFirstHit(t *testing.T) {
	worker := &fakeDownloader{}
	index := &fakeIndex{hits: []VideoInfo{
		{ID: "first1", Title: "First Hit", Duration: "2:00"},
		{ID: "second", Title: "Second Hit", Duration: "4:00"},
	}}
	svc := newTestService(t, worker, index)

	track, err := svc.SearchVideo(context.Background(), "some song", "user", "guild")
	if err != nil {
		t.Fatalf("SearchVideo: %v", err)
	}
	if track.Title != "First Hit" {
		t.Errorf("title = %q, expected the first search hit", track.Title)
	}
}

func TestSearchVideoNoHits(t *testing.T) {
	svc := newTestService(t, &fakeDownloader{}, &fakeIndex{})

	if _, err := svc.SearchVideo(context.Background(), "nothing", "user", "guild"); !errors.Is(err, apperrors.ErrNoTrackFound) {
		t.Errorf("err = %v, expected ErrNoTrackFound", err)
	}
}

func TestGetPlaylistTooLarge(t *testing.T) {
	entries := make([]downloader.PlaylistEntry, MaxPlaylistItems+1)
	for i := range entries {
		entries[i] = downloader.PlaylistEntry{
			ID:  fmt.Sprintf("vid%02d", i),
			URL: fmt.Sprintf("https://www.youtube.com/watch?v=vid%02d", i),
		}
	}
	worker := &fakeDownloader{entries: entries}
	svc := newTestService(t, worker, nil)

	_, err := svc.GetPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PLbig", "user", "guild", nil)
	if !errors.Is(err, apperrors.ErrPlaylistTooLarge) {
		t.Fatalf("err = %v, expected ErrPlaylistTooLarge", err)
	}
	if worker.runCount() != 0 {
		t.Errorf("runs = %d, oversized playlist must not download anything", worker.runCount())
	}
}

func TestGetPlaylistEmpty(t *testing.T) {
	svc := newTestService(t, &fakeDownloader{}, nil)

	_, err := svc.GetPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PLempty", "user", "guild", nil)
	if !errors.Is(err, apperrors.ErrNoTrackFound) {
		t.Errorf("err = %v, expected ErrNoTrackFound", err)
	}
}

func TestGetPlaylistStreamsContinuation(t *testing.T) {
	worker := &fakeDownloader{entries: []downloader.PlaylistEntry{
		{ID: "one11", URL: "https://www.youtube.com/watch?v=one11"},
		{ID: "two22", URL: "https://www.youtube.com/watch?v=two22"},
		{ID: "three", URL: "https://www.youtube.com/watch?v=three"},
	}}
	svc := newTestService(t, worker, nil)

	var mu sync.Mutex
	var enqueued []string
	done := make(chan struct{})
	enqueue := func(track *entities.Track) {
		mu.Lock()
		enqueued = append(enqueued, track.Title)
		if len(enqueued) == 2 {
			close(done)
		}
		mu.Unlock()
	}

	first, err := svc.GetPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PLabc", "user", "guild", enqueue)
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	if first.Title != "one11" {
		t.Errorf("first = %q, expected the first playlist entry", first.Title)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("continuation never enqueued the remaining tracks")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(enqueued) != 2 || enqueued[0] != "two22" || enqueued[1] != "three" {
		t.Errorf("enqueued = %v, expected source order", enqueued)
	}
	if worker.runCount() != 3 {
		t.Errorf("runs = %d, expected one download per entry", worker.runCount())
	}
}

func TestParseColonDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"3:20", 3*time.Minute + 20*time.Second},
		{"1:05:20", time.Hour + 5*time.Minute + 20*time.Second},
		{"0:45", 45 * time.Second},
		{"45", 0},
		{"a:b", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := parseColonDuration(tt.input); got != tt.expected {
			t.Errorf("parseColonDuration(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}
