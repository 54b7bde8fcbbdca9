package menu

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/settings"
)

type fakeHost struct {
	pushes []Item
	err    error
}

func (f *fakeHost) UpdateMenu(root Item) error {
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, root)
	return nil
}

func newTestController(t *testing.T, host *fakeHost, pos display.Point) *Controller {
	t.Helper()
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	snapshot := func() ([]display.Display, error) { return threeDisplays(), nil }
	position := func() (display.Point, error) { return pos, nil }
	return NewController(host, nil, store, snapshot, position, "weread", DefaultLabels(), nil)
}

func TestControllerRebuildPushesFreshTree(t *testing.T) {
	host := &fakeHost{}
	c := newTestController(t, host, display.Point{X: 2000, Y: 100}) // display 1

	if err := c.Rebuild(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	if len(host.pushes) != 1 {
		t.Fatalf("got %d pushes, want 1", len(host.pushes))
	}
	ids := moveIDs(windowSubmenu(t, host.pushes[0]))
	want := []string{"move_to_monitor_0", "move_to_monitor_2"}
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("move ids = %v, want %v", ids, want)
	}
}

func TestControllerRebuildSnapshotFailureKeepsOldMenu(t *testing.T) {
	host := &fakeHost{}
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	fail := errors.New("randr unavailable")
	calls := 0
	snapshot := func() ([]display.Display, error) {
		calls++
		if calls > 1 {
			return nil, fail
		}
		return threeDisplays(), nil
	}
	position := func() (display.Point, error) { return display.Point{X: 10, Y: 10}, nil }
	c := NewController(host, nil, store, snapshot, position, "weread", DefaultLabels(), nil)

	if err := c.Rebuild(); err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	if err := c.Rebuild(); !errors.Is(err, fail) {
		t.Fatalf("second rebuild error = %v, want wrapped snapshot failure", err)
	}
	if len(host.pushes) != 1 {
		t.Fatalf("failed rebuild pushed a tree: %d pushes", len(host.pushes))
	}
}

func TestControllerRebuildWithoutPositionListsAllDisplays(t *testing.T) {
	host := &fakeHost{}
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	snapshot := func() ([]display.Display, error) { return threeDisplays(), nil }
	position := func() (display.Point, error) { return display.Point{}, errors.New("window gone") }
	c := NewController(host, nil, store, snapshot, position, "weread", DefaultLabels(), nil)

	if err := c.Rebuild(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if ids := moveIDs(windowSubmenu(t, host.pushes[0])); len(ids) != 3 {
		t.Errorf("move ids = %v, want all three displays", ids)
	}
}

func TestControllerSetCheckedPushesUpdate(t *testing.T) {
	host := &fakeHost{}
	c := newTestController(t, host, display.Point{X: 10, Y: 10})

	if err := c.Rebuild(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	c.SetChecked(ActionAutoFlip, true)

	if len(host.pushes) != 2 {
		t.Fatalf("got %d pushes, want rebuild plus update", len(host.pushes))
	}
	it := findItem(&host.pushes[1], ActionAutoFlip)
	if it == nil || !it.Checked {
		t.Errorf("auto flip item not checked after update")
	}
}

func TestControllerSetCheckedUnknownIDIsNoop(t *testing.T) {
	host := &fakeHost{}
	c := newTestController(t, host, display.Point{X: 10, Y: 10})

	if err := c.Rebuild(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	c.SetChecked("no_such_item", true)

	if len(host.pushes) != 1 {
		t.Fatalf("unknown id triggered a push: %d pushes", len(host.pushes))
	}
}

func TestControllerRebuildEmitsBareSignal(t *testing.T) {
	host := &fakeHost{}
	ui := &fakeUI{}
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	snapshot := func() ([]display.Display, error) { return threeDisplays(), nil }
	position := func() (display.Point, error) { return display.Point{X: 10, Y: 10}, nil }
	c := NewController(host, ui, store, snapshot, position, "weread", DefaultLabels(), nil)

	if err := c.Rebuild(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if len(ui.events) != 1 || ui.events[0].name != "menu-rebuilt" {
		t.Fatalf("events = %v, want one menu-rebuilt", ui.events)
	}
	if ui.events[0].payload != nil {
		t.Errorf("menu-rebuilt payload = %#v, want none", ui.events[0].payload)
	}
}

func TestControllerRebuildReadsSiteState(t *testing.T) {
	host := &fakeHost{}
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	store.Write(settings.WithSites(map[string]settings.SiteState{
		"weread": {HideNavbar: true},
	}))
	snapshot := func() ([]display.Display, error) { return threeDisplays(), nil }
	position := func() (display.Point, error) { return display.Point{X: 10, Y: 10}, nil }
	c := NewController(host, nil, store, snapshot, position, "weread", DefaultLabels(), nil)

	if err := c.Rebuild(); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	it := findItem(&host.pushes[0], ActionHideNavbar)
	if it == nil || !it.Checked {
		t.Errorf("hide navbar check not seeded from store")
	}
}
