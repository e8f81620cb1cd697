package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	store, err := NewStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func writeAudio(t *testing.T, store *Store, id, content string) string {
	t.Helper()
	path := store.AudioPath(id)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestPutGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	path := writeAudio(t, store, "vid1", "opus bytes")

	meta := Metadata{ID: "vid1", Title: "Test Song", Author: "Tester", DurationMS: 180000}
	if _, err := store.Put("vid1", path, meta); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, ok := store.Get("vid1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.FilePath != path {
		t.Errorf("FilePath = %q, expected %q", entry.FilePath, path)
	}
	if entry.Meta.Title != "Test Song" || entry.Meta.DurationMS != 180000 {
		t.Errorf("meta = %+v, roundtrip lost fields", entry.Meta)
	}
}

func TestPutIsWriteOnce(t *testing.T) {
	store := newTestStore(t)
	path := writeAudio(t, store, "vid1", "first download")

	first, err := store.Put("vid1", path, Metadata{ID: "vid1", Title: "First"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// a second writer for the same key loses; the original entry survives
	second, err := store.Put("vid1", path, Metadata{ID: "vid1", Title: "Second"})
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if second.Meta.Title != first.Meta.Title {
		t.Errorf("second Put replaced the entry: %q", second.Meta.Title)
	}

	entry, _ := store.Get("vid1")
	if entry.Meta.Title != "First" {
		t.Errorf("stored title = %q, expected First", entry.Meta.Title)
	}
}

func TestPutRejectsMissingOrEmptyPayload(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Put("gone", store.AudioPath("gone"), Metadata{}); err == nil {
		t.Error("expected error for missing payload file")
	}

	empty := writeAudio(t, store, "empty", "")
	if _, err := store.Put("empty", empty, Metadata{}); err == nil {
		t.Error("expected error for zero-byte payload")
	}
}

func TestGetMisses(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.Get("never-stored"); ok {
		t.Error("unknown id should miss")
	}

	// entry whose audio file disappeared is a miss
	path := writeAudio(t, store, "vid1", "bytes")
	store.Put("vid1", path, Metadata{ID: "vid1"})
	os.Remove(path)
	if _, ok := store.Get("vid1"); ok {
		t.Error("entry with missing audio file should miss")
	}

	// truncated audio file is a miss too
	path2 := writeAudio(t, store, "vid2", "bytes")
	store.Put("vid2", path2, Metadata{ID: "vid2"})
	os.Truncate(path2, 0)
	if _, ok := store.Get("vid2"); ok {
		t.Error("entry with empty audio file should miss")
	}
}

func TestGetCorruptMetadata(t *testing.T) {
	store := newTestStore(t)

	metaPath := filepath.Join(store.Dir(), "metadata", "bad.json")
	if err := os.WriteFile(metaPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if _, ok := store.Get("bad"); ok {
		t.Error("corrupt metadata should miss, not fail")
	}
}

func TestPlaylistSnapshotRoundtrip(t *testing.T) {
	store := newTestStore(t)

	snap := PlaylistSnapshot{
		ID:    "PLabc",
		Title: "Mix",
		URL:   "https://www.youtube.com/playlist?list=PLabc",
		Items: []PlaylistItem{
			{VideoID: "v1", Title: "One", URL: "https://www.youtube.com/watch?v=v1"},
			{VideoID: "v2", Title: "Two", URL: "https://www.youtube.com/watch?v=v2"},
		},
	}
	if err := store.SavePlaylist(snap); err != nil {
		t.Fatalf("SavePlaylist: %v", err)
	}

	loaded, ok := store.LoadPlaylist("PLabc")
	if !ok {
		t.Fatal("expected playlist snapshot hit")
	}
	if len(loaded.Items) != 2 || loaded.Items[1].VideoID != "v2" {
		t.Errorf("items = %+v, order not preserved", loaded.Items)
	}
	if loaded.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped on save")
	}

	if _, ok := store.LoadPlaylist("PLmissing"); ok {
		t.Error("unknown playlist should miss")
	}
}
