// Package dashboard tracks snapshot state and background sync runs for the
// status view.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marcin-skalski/mngtool/internal/store"
	"github.com/marcin-skalski/mngtool/internal/syncer"
	"github.com/marcin-skalski/mngtool/internal/tui"
)

// SyncFunc runs one full sync.
type SyncFunc func(ctx context.Context) (*syncer.SyncResult, error)

type Dashboard struct {
	store  *store.Store
	sync   SyncFunc
	logger *slog.Logger
	now    func() time.Time

	trigger chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	last tui.SyncState
}

func New(st *store.Store, syncFn SyncFunc, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		store:   st,
		sync:    syncFn,
		logger:  logger,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
}

// Run serves sync requests until ctx is cancelled, then waits for an
// in-flight sync to stop.
func (d *Dashboard) Run(ctx context.Context) error {
	d.logger.Info("dashboard started", "storage", d.store.Root())

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down, waiting for sync")
			d.wg.Wait()
			return nil
		case <-d.trigger:
			d.startSync(ctx)
		}
	}
}

// TriggerSync queues a sync. It returns false when one is already running
// or queued.
func (d *Dashboard) TriggerSync() bool {
	d.mu.Lock()
	running := d.last.Running
	d.mu.Unlock()
	if running {
		return false
	}

	select {
	case d.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Dashboard) startSync(ctx context.Context) {
	d.mu.Lock()
	if d.last.Running {
		d.mu.Unlock()
		return
	}
	d.last = tui.SyncState{Running: true, StartedAt: d.now()}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		res, err := d.sync(ctx)

		d.mu.Lock()
		defer d.mu.Unlock()
		d.last.Running = false
		d.last.FinishedAt = d.now()
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Error("sync failed", "err", err)
			}
			d.last.Err = err.Error()
			return
		}
		d.last.RunID = res.RunID
		d.last.Files = len(res.Files)
		for _, f := range res.Files {
			if f.Unchanged {
				d.last.Unchanged++
			}
		}
	}()
}

// GetSnapshot reports every master collection and the last sync run.
func (d *Dashboard) GetSnapshot() tui.Snapshot {
	d.mu.Lock()
	last := d.last
	d.mu.Unlock()

	snap := tui.Snapshot{
		Timestamp:  d.now(),
		StorageDir: d.store.Root(),
		Sync:       last,
	}

	infos, err := d.store.StatAll()
	if err != nil {
		d.logger.Warn("stat snapshots failed", "err", err)
	}
	snap.Collections = make([]tui.CollectionState, 0, len(store.MasterCollections))
	if err != nil {
		for _, name := range store.MasterCollections {
			snap.Collections = append(snap.Collections, tui.CollectionState{Name: name})
		}
		return snap
	}
	for _, info := range infos {
		snap.Collections = append(snap.Collections, tui.CollectionState{
			Name:      info.Name,
			Exists:    info.Exists,
			Count:     info.Count,
			FetchedAt: info.FetchedAt,
			Size:      info.Size,
		})
	}
	return snap
}
