// Package watcher polls the shell window's position and requests a menu
// rebuild when the window settles on a different display. Polling is the
// only portable signal: window managers do not report cross-display moves
// for windows they own on behalf of a webview.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/readershell/internal/display"
)

// Rebuilder regenerates the menu from current state.
type Rebuilder interface {
	Rebuild() error
}

// Watcher drives the poll loop. Construct with New and run with Run; the
// zero value is not usable.
type Watcher struct {
	position  func() (display.Point, error)
	displays  func() ([]display.Display, error)
	rebuilder Rebuilder
	interval  time.Duration
	settle    time.Duration
	logger    *slog.Logger

	mu            sync.Mutex
	settlePending bool
}

func New(position func() (display.Point, error), displays func() ([]display.Display, error), rebuilder Rebuilder, interval, settle time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		position:  position,
		displays:  displays,
		rebuilder: rebuilder,
		interval:  interval,
		settle:    settle,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled. Each tick reads the window position;
// an unchanged position skips the topology snapshot entirely. When the
// window's display changes, the tracked index updates immediately and one
// rebuild is scheduled behind the settle delay, so a window dragged across
// three displays in one motion rebuilds once per settled display, not once
// per tick.
//
// Transient read failures (window briefly unmapped, server busy) are
// logged and skipped; the loop keeps its previous state and retries next
// tick.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("position watcher started",
		"interval", w.interval, "settle_delay", w.settle)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastPos display.Point
	havePos := false
	lastIndex := 0
	haveIndex := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("position watcher stopped")
			return
		case <-ticker.C:
			pos, err := w.position()
			if err != nil {
				w.logger.Debug("window position read failed", "error", err)
				continue
			}
			if havePos && pos == lastPos {
				continue
			}
			lastPos, havePos = pos, true

			snapshot, err := w.displays()
			if err != nil {
				w.logger.Debug("display snapshot failed", "error", err)
				continue
			}

			index, ok := display.Locate(pos, snapshot)
			if !ok {
				// Mid-drag the origin can sit between displays; keep the
				// last known index until it lands somewhere.
				continue
			}
			if haveIndex && index == lastIndex {
				continue
			}

			w.logger.Debug("window changed display", "from", lastIndex, "to", index, "tracked", haveIndex)
			lastIndex, haveIndex = index, true
			w.scheduleRebuild()
		}
	}
}

// scheduleRebuild queues a single settle-delayed rebuild. Further display
// changes inside the delay window are absorbed by the pending rebuild,
// which reads the final position itself.
func (w *Watcher) scheduleRebuild() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.settlePending {
		return
	}
	w.settlePending = true

	time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		w.settlePending = false
		w.mu.Unlock()

		if err := w.rebuilder.Rebuild(); err != nil {
			w.logger.Warn("menu rebuild failed", "error", err)
		}
	})
}
