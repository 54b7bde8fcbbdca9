package ipc

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/settings"
)

type fakeBackend struct {
	displays []display.Display
	pos      display.Point
}

func (f *fakeBackend) Displays() ([]display.Display, error)   { return f.displays, nil }
func (f *fakeBackend) WindowPosition() (display.Point, error) { return f.pos, nil }
func (f *fakeBackend) WindowSize() (display.Size, error) {
	return display.Size{Width: 800, Height: 600}, nil
}
func (f *fakeBackend) SetLogicalPosition(x, y int) error { return nil }
func (f *fakeBackend) Minimize() error                   { return nil }
func (f *fakeBackend) CloseWindow() error                { return nil }
func (f *fakeBackend) Fullscreen() (bool, error)         { return false, nil }
func (f *fakeBackend) SetFullscreen(on bool) error       { return nil }
func (f *fakeBackend) Disconnect()                       {}

type fakeMover struct {
	mu      sync.Mutex
	indices []int
	err     error
}

func (f *fakeMover) MoveToDisplay(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indices = append(f.indices, index)
	return nil
}

type noopRebuilder struct{ calls int }

func (n *noopRebuilder) Rebuild() error { n.calls++; return nil }

func startServer(t *testing.T, backend *fakeBackend, mover *fakeMover) *noopRebuilder {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	rebuilder := &noopRebuilder{}

	server, err := NewServer(backend, store, mover, rebuilder, "weread")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(server.Stop)
	return rebuilder
}

func testTopology() []display.Display {
	return []display.Display{
		{Index: 0, Name: "eDP-1", Bounds: display.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, Scale: 1.0},
		{Index: 1, Name: "DP-1", Bounds: display.Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}, Scale: 1.0},
	}
}

func TestGetStatusOverSocket(t *testing.T) {
	backend := &fakeBackend{displays: testTopology(), pos: display.Point{X: 2000, Y: 100}}
	startServer(t, backend, &fakeMover{})

	status, err := NewClient().GetStatus()
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if !status.DaemonRunning || status.Site != "weread" {
		t.Errorf("status = %+v", status)
	}
	if !status.Located || status.CurrentDisplay != 1 {
		t.Errorf("located on display %d (located=%v), want 1", status.CurrentDisplay, status.Located)
	}
	if status.DisplayCount != 2 {
		t.Errorf("display count = %d, want 2", status.DisplayCount)
	}
}

func TestGetDisplaysMarksCurrent(t *testing.T) {
	backend := &fakeBackend{displays: testTopology(), pos: display.Point{X: 100, Y: 100}}
	startServer(t, backend, &fakeMover{})

	data, err := NewClient().GetDisplays()
	if err != nil {
		t.Fatalf("GetDisplays failed: %v", err)
	}
	if len(data.Displays) != 2 {
		t.Fatalf("got %d displays, want 2", len(data.Displays))
	}
	if !data.Displays[0].Current || data.Displays[1].Current {
		t.Errorf("current flags wrong: %+v", data.Displays)
	}
}

func TestMoveToDisplayForwardsToMover(t *testing.T) {
	backend := &fakeBackend{displays: testTopology()}
	mover := &fakeMover{}
	startServer(t, backend, mover)

	if err := NewClient().MoveToDisplay(1); err != nil {
		t.Fatalf("MoveToDisplay failed: %v", err)
	}
	if len(mover.indices) != 1 || mover.indices[0] != 1 {
		t.Errorf("mover saw %v, want [1]", mover.indices)
	}
}

func TestMoveToDisplayRejectsNegativeIndex(t *testing.T) {
	backend := &fakeBackend{displays: testTopology()}
	mover := &fakeMover{}
	startServer(t, backend, mover)

	if err := NewClient().MoveToDisplay(-1); err == nil {
		t.Fatalf("negative index accepted")
	}
	if len(mover.indices) != 0 {
		t.Errorf("mover invoked for invalid index: %v", mover.indices)
	}
}

func TestMoveToDisplayErrorSurfaced(t *testing.T) {
	backend := &fakeBackend{displays: testTopology()}
	mover := &fakeMover{err: errors.New("window gone")}
	startServer(t, backend, mover)

	if err := NewClient().MoveToDisplay(0); err == nil {
		t.Fatalf("mover failure not surfaced")
	}
}

func TestGetSettingsReturnsDocument(t *testing.T) {
	backend := &fakeBackend{displays: testTopology()}
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	store.WriteVersioned(settings.Document{}, 7)

	server, err := NewServer(backend, store, &fakeMover{}, &noopRebuilder{}, "weread")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer server.Stop()

	data, err := NewClient().GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if data.Version != 7 {
		t.Errorf("version = %d, want 7", data.Version)
	}
}

func TestRebuildMenuCommand(t *testing.T) {
	backend := &fakeBackend{displays: testTopology()}
	rebuilder := startServer(t, backend, &fakeMover{})

	if err := NewClient().RebuildMenu(); err != nil {
		t.Fatalf("RebuildMenu failed: %v", err)
	}
	if rebuilder.calls != 1 {
		t.Errorf("rebuild calls = %d, want 1", rebuilder.calls)
	}
}
