package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
	apperrors "github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/errors"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

type fakeSearcher struct {
	requests []SearchRequest
	result   *SearchResult
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFallback struct {
	videoCalls    []string
	searchCalls   []string
	playlistCalls []string
	track         *entities.Track
	err           error
}

func (f *fakeFallback) GetVideo(ctx context.Context, rawURL, requestedBy, guildID string) (*entities.Track, error) {
	f.videoCalls = append(f.videoCalls, rawURL)
	return f.track, f.err
}

func (f *fakeFallback) SearchVideo(ctx context.Context, query, requestedBy, guildID string) (*entities.Track, error) {
	f.searchCalls = append(f.searchCalls, query)
	return f.track, f.err
}

func (f *fakeFallback) GetPlaylist(ctx context.Context, rawURL, requestedBy, guildID string, enqueue func(*entities.Track)) (*entities.Track, error) {
	f.playlistCalls = append(f.playlistCalls, rawURL)
	return f.track, f.err
}

func searchTrack(title string) *entities.Track {
	return entities.NewTrack(title, "author", "https://www.youtube.com/watch?v="+title, 200000,
		valueobjects.NewGenericMetadata("youtube", "", ""), "user", "guild")
}

func newTestResolver(searcher Searcher, fb Fallback, cfg Config) *Resolver {
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	return New(searcher, fb, cfg, log)
}

func TestResolveVideoStripsTrackingParams(t *testing.T) {
	searcher := &fakeSearcher{result: &SearchResult{Tracks: []*entities.Track{searchTrack("abc123")}}}
	r := newTestResolver(searcher, &fakeFallback{}, Config{})

	res, err := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123&si=share", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceType != valueobjects.SourceTypeYouTubeVideo {
		t.Errorf("source = %v, expected youtube_video", res.SourceType)
	}
	if len(searcher.requests) != 1 {
		t.Fatalf("searches = %d, expected 1", len(searcher.requests))
	}
	if got := searcher.requests[0].Query; got != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("query = %q, tracking params must be stripped before the extractor sees it", got)
	}
}

func TestResolveVideoFallsBackOnPrimaryFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("extractor broke")}
	fb := &fakeFallback{track: searchTrack("abc123")}
	r := newTestResolver(searcher, fb, Config{})

	res, err := r.Resolve(context.Background(), "https://youtu.be/abc123", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(fb.videoCalls) != 1 {
		t.Fatalf("fallback calls = %d, expected 1", len(fb.videoCalls))
	}
	if len(res.Tracks) != 1 || res.Tracks[0].Title != "abc123" {
		t.Error("resolution should carry the fallback track")
	}
}

func TestResolveSearchTermFallsBackToIndex(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("extractor broke")}
	fb := &fakeFallback{track: searchTrack("hit")}
	r := newTestResolver(searcher, fb, Config{})

	res, err := r.Resolve(context.Background(), "some song name", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceType != valueobjects.SourceTypeSearchTerm {
		t.Errorf("source = %v, expected search_term", res.SourceType)
	}
	if len(fb.searchCalls) != 1 || fb.searchCalls[0] != "some song name" {
		t.Errorf("fallback search calls = %v", fb.searchCalls)
	}
}

func TestResolveStreamMarksTrackLive(t *testing.T) {
	track := searchTrack("radio")
	searcher := &fakeSearcher{result: &SearchResult{Tracks: []*entities.Track{track}}}
	cfg := Config{
		StreamEndpoint: "https://radio.example.net:8000/stream",
		StreamMirrors:  []string{"old-radio.example.net"},
	}
	r := newTestResolver(searcher, &fakeFallback{}, cfg)

	res, err := r.Resolve(context.Background(), "http://old-radio.example.net/listen:8000/stream", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceType != valueobjects.SourceTypeStream {
		t.Fatalf("source = %v, expected stream", res.SourceType)
	}
	if got := searcher.requests[0].Query; got != cfg.StreamEndpoint {
		t.Errorf("query = %q, mirror should be normalized to the canonical endpoint", got)
	}
	if !res.Tracks[0].Live || res.Tracks[0].Duration != valueobjects.DurationInfinite {
		t.Error("stream track must be marked live")
	}
}

func TestResolveSchemelessStreamInput(t *testing.T) {
	track := searchTrack("radio")
	searcher := &fakeSearcher{result: &SearchResult{Tracks: []*entities.Track{track}}}
	r := newTestResolver(searcher, &fakeFallback{}, Config{})

	res, err := r.Resolve(context.Background(), "some live stream url:8080/stream", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceType != valueobjects.SourceTypeStream {
		t.Errorf("source = %v, schemeless host:port input should classify as stream", res.SourceType)
	}
}

func TestResolvePlaylistPrimaryPath(t *testing.T) {
	tracks := []*entities.Track{searchTrack("one"), searchTrack("two")}
	searcher := &fakeSearcher{result: &SearchResult{
		Tracks:   tracks,
		Playlist: &PlaylistInfo{Title: "Mix", URL: "https://www.youtube.com/playlist?list=PLabc"},
	}}
	r := newTestResolver(searcher, &fakeFallback{}, Config{})

	res, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PLabc", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Tracks) != 2 || res.Playlist == nil || res.Playlist.Title != "Mix" {
		t.Errorf("res = %+v, expected full playlist resolution", res)
	}
	if searcher.requests[0].Engine != EngineYouTubePlaylist {
		t.Errorf("engine = %v", searcher.requests[0].Engine)
	}
}

func TestResolvePlaylistWithoutPlaylistInfoFails(t *testing.T) {
	searcher := &fakeSearcher{result: &SearchResult{Tracks: []*entities.Track{searchTrack("one")}}}
	r := newTestResolver(searcher, &fakeFallback{}, Config{})

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PLabc", "user", "guild", nil)
	if !errors.Is(err, apperrors.ErrNoTrackFound) {
		t.Errorf("err = %v, expected ErrNoTrackFound", err)
	}
}

func TestResolvePlaylistTooLargeSkipsFallback(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("%w: 500 items (limit 32)", apperrors.ErrPlaylistTooLarge)}
	fb := &fakeFallback{track: searchTrack("first")}
	r := newTestResolver(searcher, fb, Config{})

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PLbig", "user", "guild", nil)
	if !errors.Is(err, apperrors.ErrPlaylistTooLarge) {
		t.Fatalf("err = %v, expected ErrPlaylistTooLarge", err)
	}
	if len(fb.playlistCalls) != 0 {
		t.Error("size rejection must not re-enumerate through the fallback")
	}
}

func TestResolvePlaylistFallbackStreamsFirstTrack(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("extractor broke")}
	fb := &fakeFallback{track: searchTrack("first")}
	r := newTestResolver(searcher, fb, Config{})

	enqueue := func(*entities.Track) {}
	res, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PLabc&si=x", "user", "guild", enqueue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(fb.playlistCalls) != 1 || fb.playlistCalls[0] != "https://www.youtube.com/playlist?list=PLabc" {
		t.Errorf("fallback calls = %v, expected cleaned playlist URL", fb.playlistCalls)
	}
	if len(res.Tracks) != 1 || res.Tracks[0].Title != "first" {
		t.Error("only the first track is returned synchronously")
	}
	if res.Playlist == nil || res.Playlist.URL != "https://www.youtube.com/playlist?list=PLabc" {
		t.Errorf("playlist = %+v", res.Playlist)
	}
}

// roundTripFunc redirects outbound requests at the test server so the query
// under test can be a clean port-free URL
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func redirectTo(srv *httptest.Server) *http.Client {
	target := strings.TrimPrefix(srv.URL, "http://")
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		req.URL.Scheme = "http"
		req.URL.Host = target
		return http.DefaultTransport.RoundTrip(req)
	})}
}

func TestResolveExternalURLDownloadsFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	searcher := &fakeSearcher{result: &SearchResult{Tracks: []*entities.Track{searchTrack("song")}}}
	r := newTestResolver(searcher, &fakeFallback{}, Config{DownloadDir: t.TempDir()})
	r.httpClient = redirectTo(srv)

	res, err := r.Resolve(context.Background(), "https://cdn.example.com/music/song.mp3?token=x", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceType != valueobjects.SourceTypeExternalURL {
		t.Errorf("source = %v, expected external_url", res.SourceType)
	}
	if searcher.requests[0].Engine != EngineFile {
		t.Errorf("engine = %v, downloaded target resolves the local file", searcher.requests[0].Engine)
	}
	if !strings.HasSuffix(searcher.requests[0].Query, "song.mp3") {
		t.Errorf("query = %q, expected local path ending in song.mp3", searcher.requests[0].Query)
	}
}

func TestResolveExternalURLServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	r := newTestResolver(&fakeSearcher{}, &fakeFallback{}, Config{DownloadDir: t.TempDir()})
	r.httpClient = redirectTo(srv)

	_, err := r.Resolve(context.Background(), "https://cdn.example.com/song.mp3", "user", "guild", nil)
	if !errors.Is(err, apperrors.ErrDownloadFailed) {
		t.Errorf("err = %v, expected ErrDownloadFailed", err)
	}
}

func TestResolveSpotifyUsesSpotifyEngine(t *testing.T) {
	searcher := &fakeSearcher{result: &SearchResult{Tracks: []*entities.Track{searchTrack("sp")}}}
	r := newTestResolver(searcher, &fakeFallback{}, Config{})

	res, err := r.Resolve(context.Background(), "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT", "user", "guild", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceType != valueobjects.SourceTypeSpotify {
		t.Errorf("source = %v, expected spotify", res.SourceType)
	}
	if searcher.requests[0].Engine != EngineSpotifySearch {
		t.Errorf("engine = %v", searcher.requests[0].Engine)
	}
}
