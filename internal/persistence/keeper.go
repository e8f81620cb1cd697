package persistence

import (
	"sync"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// QueueSource exposes the live queues the keeper snapshots
type QueueSource interface {
	ActiveQueues() map[string][]*entities.Track
}

// Keeper periodically snapshots active queues to disk and serves the
// pending-restore table loaded at startup.
//
// Restore entries are never consumed: a guild can replay its saved queue any
// number of times until the next bot restart overwrites the snapshot.
type Keeper struct {
	store  *Store
	source QueueSource
	logger *logger.Logger

	mu      sync.RWMutex
	pending map[string][]*entities.Track
	started bool

	stop chan struct{}
	done chan struct{}
}

// NewKeeper creates a snapshot keeper and loads the pending-restore table
// from the previous run's snapshot file. An unreadable snapshot is logged
// and treated as no snapshot; startup must survive a corrupt file.
func NewKeeper(store *Store, source QueueSource, log *logger.Logger) *Keeper {
	k := &Keeper{
		store:   store,
		source:  source,
		logger:  log,
		pending: make(map[string][]*entities.Track),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	saved, err := store.Load()
	if err != nil {
		log.WithError(err).Warn("Queue snapshot unreadable, starting without pending restores")
	}
	for _, gq := range saved {
		if len(gq.Tracks) > 0 {
			k.pending[gq.GuildID] = gq.Tracks
		}
	}

	if len(k.pending) > 0 {
		log.WithField("guilds", len(k.pending)).Info("Loaded queue snapshots from previous run")
	}
	return k
}

// Start launches the periodic snapshot loop
func (k *Keeper) Start(interval time.Duration) {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return
	}
	k.started = true
	k.mu.Unlock()

	go func() {
		defer close(k.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				k.flush()
			case <-k.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and writes one final snapshot. Safe to call whether or
// not Start ever ran.
func (k *Keeper) Stop() {
	k.mu.Lock()
	running := k.started
	k.started = false
	k.mu.Unlock()

	if running {
		close(k.stop)
		<-k.done
	}
	k.flush()
}

// Pending returns the saved queue for a guild, or nil when none exists.
// The entry stays available for repeated restores.
func (k *Keeper) Pending(guildID string) []*entities.Track {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pending[guildID]
}

func (k *Keeper) flush() {
	queues := k.source.ActiveQueues()
	if err := k.store.Save(queues); err != nil {
		k.logger.WithError(err).Error("Failed to snapshot active queues")
		return
	}
	k.logger.WithField("guilds", len(queues)).Debug("Active queues snapshotted")
}
