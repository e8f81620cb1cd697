package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

func snapshotTrack(title string) *entities.Track {
	return entities.NewTrack(title, "author", "https://example.com/"+title, 1000,
		valueobjects.NewGenericMetadata("search", "", ""), "user", "guild-1")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queues.json")
	store := NewStore(path)

	queues := map[string][]*entities.Track{
		"guild-1": {snapshotTrack("a"), snapshotTrack("b")},
		"guild-2": {snapshotTrack("c")},
	}
	if err := store.Save(queues); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	byGuild := make(map[string][]*entities.Track)
	for _, gq := range loaded {
		byGuild[gq.GuildID] = gq.Tracks
	}
	if len(byGuild["guild-1"]) != 2 || byGuild["guild-1"][0].Title != "a" || byGuild["guild-1"][1].Title != "b" {
		t.Errorf("guild-1 = %+v, order not preserved", byGuild["guild-1"])
	}
	if len(byGuild["guild-2"]) != 1 {
		t.Errorf("guild-2 = %+v", byGuild["guild-2"])
	}

	// the temp file must not be left behind after the atomic rename
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-written.json"))

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %v, expected nil for a missing snapshot", loaded)
	}
}

type fakeQueueSource struct {
	queues map[string][]*entities.Track
}

func (f *fakeQueueSource) ActiveQueues() map[string][]*entities.Track {
	return f.queues
}

func TestKeeperLoadsPendingFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queues.json")
	store := NewStore(path)
	store.Save(map[string][]*entities.Track{
		"guild-1": {snapshotTrack("a"), snapshotTrack("b")},
		"guild-2": {},
	})

	keeper := NewKeeper(store, &fakeQueueSource{}, testLogger())

	pending := keeper.Pending("guild-1")
	if len(pending) != 2 || pending[0].Title != "a" {
		t.Fatalf("pending = %+v", pending)
	}

	// restore is repeatable: a second read sees the same entry
	if again := keeper.Pending("guild-1"); len(again) != 2 {
		t.Error("pending entry must survive being read")
	}

	// empty queues are not restorable
	if keeper.Pending("guild-2") != nil {
		t.Error("empty saved queue should not appear as pending")
	}
	if keeper.Pending("guild-3") != nil {
		t.Error("unknown guild should have no pending queue")
	}
}

func TestKeeperSurvivesCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queues.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	// a garbled snapshot file must degrade to an empty pending table, not
	// abort startup
	keeper := NewKeeper(NewStore(path), &fakeQueueSource{queues: map[string][]*entities.Track{
		"guild-1": {snapshotTrack("a")},
	}}, testLogger())

	if keeper.Pending("guild-1") != nil {
		t.Error("corrupt snapshot should leave no pending restores")
	}

	// and the next flush replaces the garbage with a valid snapshot
	keeper.Stop()
	loaded, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load after flush: %v", err)
	}
	if len(loaded) != 1 || loaded[0].GuildID != "guild-1" {
		t.Errorf("loaded = %+v, flush should overwrite the corrupt file", loaded)
	}
}

func TestKeeperStopWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queues.json")
	source := &fakeQueueSource{queues: map[string][]*entities.Track{
		"guild-1": {snapshotTrack("a")},
	}}
	keeper := NewKeeper(NewStore(path), source, testLogger())

	done := make(chan struct{})
	go func() {
		keeper.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop without Start must not block")
	}

	if loaded, _ := NewStore(path).Load(); len(loaded) != 1 {
		t.Error("Stop should still write the final snapshot")
	}
}

func TestKeeperStopWritesFinalSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queues.json")
	store := NewStore(path)
	source := &fakeQueueSource{queues: map[string][]*entities.Track{
		"guild-1": {snapshotTrack("a")},
	}}

	keeper := NewKeeper(store, source, testLogger())

	keeper.Start(time.Hour) // interval long enough that only Stop flushes
	keeper.Stop()

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].GuildID != "guild-1" {
		t.Errorf("loaded = %+v, expected the final flush to persist guild-1", loaded)
	}
}
