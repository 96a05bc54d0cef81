package storage

import (
	"context"
	"log/slog"
	"os"
	"time"

	"streamvault/internal/server/database"
)

// minOrphanAge is how old a file must be before the sweeper will touch it,
// so in-flight uploads whose database row is not committed yet are skipped.
const minOrphanAge = 1 * time.Hour

// OrphanSweeper periodically removes files from storage that no video record
// references. Such files can be left behind when an upload fails between the
// disk write and the row insert, or when the process crashes mid-delete.
type OrphanSweeper struct {
	repo     *database.Repository
	store    Store
	interval time.Duration
	done     chan struct{}
}

// NewOrphanSweeper creates a new orphan-file sweeper.
func NewOrphanSweeper(repo *database.Repository, store Store, interval time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		repo:     repo,
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (sw *OrphanSweeper) Start(ctx context.Context) {
	slog.Info("orphan sweeper started", "interval", sw.interval)

	go func() {
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		// Run once immediately on start
		sw.runSweep(ctx)

		for {
			select {
			case <-ticker.C:
				sw.runSweep(ctx)
			case <-ctx.Done():
				slog.Info("orphan sweeper stopping")
				close(sw.done)
				return
			}
		}
	}()
}

// Wait blocks until the sweeper has fully stopped.
func (sw *OrphanSweeper) Wait() {
	<-sw.done
}

func (sw *OrphanSweeper) runSweep(ctx context.Context) {
	videos, err := sw.repo.GetAllVideos(ctx)
	if err != nil {
		slog.Error("orphan sweep: failed to list videos", "error", err)
		return
	}

	referenced := make(map[string]bool, len(videos))
	for _, v := range videos {
		referenced[v.Filename] = true
	}

	names, err := sw.store.List()
	if err != nil {
		slog.Error("orphan sweep: failed to list storage", "error", err)
		return
	}

	var removed int
	for _, name := range names {
		if referenced[name] {
			continue
		}

		path, err := sw.store.GetPath(name)
		if err != nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || time.Since(info.ModTime()) < minOrphanAge {
			continue
		}

		if err := sw.store.Delete(name); err != nil {
			slog.Error("orphan sweep: failed to delete file", "filename", name, "error", err)
			continue
		}
		removed++
		slog.Info("removed orphaned file", "filename", name)
	}

	if removed > 0 {
		slog.Info("orphan sweep complete", "removed", removed)
	}
}
