package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/readershell/internal/display"
)

func twoDisplays() []display.Display {
	return []display.Display{
		{Index: 0, Name: "eDP-1", Bounds: display.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, Scale: 1.0},
		{Index: 1, Name: "DP-1", Bounds: display.Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}, Scale: 1.0},
	}
}

// positionScript replays a fixed sequence of positions, holding the last
// one once exhausted.
type positionScript struct {
	mu        sync.Mutex
	positions []display.Point
	i         int
}

func (p *positionScript) next() (display.Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.i < len(p.positions)-1 {
		pos := p.positions[p.i]
		p.i++
		return pos, nil
	}
	return p.positions[len(p.positions)-1], nil
}

type countingRebuilder struct {
	mu    sync.Mutex
	count int
}

func (c *countingRebuilder) Rebuild() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func (c *countingRebuilder) rebuilds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func runWatcher(t *testing.T, script *positionScript, rebuilder *countingRebuilder, d time.Duration) {
	t.Helper()
	w := New(script.next, func() ([]display.Display, error) { return twoDisplays(), nil },
		rebuilder, time.Millisecond, time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	w.Run(ctx)
	// Let a rebuild scheduled just before cancellation fire.
	time.Sleep(20 * time.Millisecond)
}

func TestStablePositionNeverRebuilds(t *testing.T) {
	script := &positionScript{positions: []display.Point{{X: 100, Y: 100}}}
	rebuilder := &countingRebuilder{}

	runWatcher(t, script, rebuilder, 100*time.Millisecond)

	// The first tick establishes the tracked display and schedules the
	// initial rebuild; a stable window must add nothing beyond that.
	if got := rebuilder.rebuilds(); got > 1 {
		t.Fatalf("stable window produced %d rebuilds", got)
	}
}

func TestMoveWithinDisplayNeverRebuildsAgain(t *testing.T) {
	script := &positionScript{positions: []display.Point{
		{X: 100, Y: 100},
		{X: 300, Y: 200},
		{X: 500, Y: 400}, // all on display 0
	}}
	rebuilder := &countingRebuilder{}

	runWatcher(t, script, rebuilder, 100*time.Millisecond)

	if got := rebuilder.rebuilds(); got > 1 {
		t.Fatalf("same-display moves produced %d rebuilds", got)
	}
}

func TestCrossDisplayMoveRebuildsOncePerTransition(t *testing.T) {
	// Hold display 0 long enough for its settle window to close before
	// the jump to display 1, so the two transitions cannot coalesce.
	var seq []display.Point
	for i := 0; i < 40; i++ {
		seq = append(seq, display.Point{X: 100, Y: 100}) // display 0
	}
	seq = append(seq, display.Point{X: 2000, Y: 100}) // display 1

	script := &positionScript{positions: seq}
	rebuilder := &countingRebuilder{}

	runWatcher(t, script, rebuilder, 200*time.Millisecond)

	// One rebuild when tracking starts on display 0, one for the
	// transition to display 1.
	if got := rebuilder.rebuilds(); got != 2 {
		t.Fatalf("got %d rebuilds, want 2", got)
	}
}

func TestOffScreenPositionKeepsTrackedDisplay(t *testing.T) {
	script := &positionScript{positions: []display.Point{
		{X: 100, Y: 100},    // display 0
		{X: -5000, Y: -500}, // outside every display
		{X: 200, Y: 150},    // back on display 0
	}}
	rebuilder := &countingRebuilder{}

	runWatcher(t, script, rebuilder, 150*time.Millisecond)

	// The off-screen excursion and the return to the same display must
	// not count as transitions.
	if got := rebuilder.rebuilds(); got > 1 {
		t.Fatalf("off-screen excursion produced %d rebuilds", got)
	}
}

func TestPositionErrorsAreSkipped(t *testing.T) {
	calls := 0
	position := func() (display.Point, error) {
		calls++
		if calls%2 == 0 {
			return display.Point{}, context.DeadlineExceeded
		}
		return display.Point{X: 100, Y: 100}, nil
	}
	rebuilder := &countingRebuilder{}
	w := New(position, func() ([]display.Display, error) { return twoDisplays(), nil },
		rebuilder, time.Millisecond, time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	if got := rebuilder.rebuilds(); got > 1 {
		t.Fatalf("flaky position reads produced %d rebuilds", got)
	}
}

func TestScheduleRebuildSingleInFlight(t *testing.T) {
	rebuilder := &countingRebuilder{}
	w := New(nil, nil, rebuilder, time.Millisecond, 30*time.Millisecond, nil)

	for i := 0; i < 10; i++ {
		w.scheduleRebuild()
	}
	time.Sleep(100 * time.Millisecond)

	if got := rebuilder.rebuilds(); got != 1 {
		t.Fatalf("got %d rebuilds from coalesced schedules, want 1", got)
	}
}
