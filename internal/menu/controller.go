package menu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/settings"
)

// Host receives the rebuilt menu tree. The UI layer renders whatever tree
// it gets; the controller never mutates a tree the host already holds.
type Host interface {
	UpdateMenu(root Item) error
}

// Emitter pushes named events with a JSON payload to the UI layer.
type Emitter interface {
	Emit(event string, payload any) error
}

// Snapshotter returns a fresh display topology snapshot.
type Snapshotter func() ([]display.Display, error)

// PositionFn returns the shell window's current outer position in physical
// pixels.
type PositionFn func() (display.Point, error)

// Controller rebuilds the menu from live state and swaps it into the host
// atomically. All rebuilds are serialized; the old tree stays visible until
// the replacement is fully constructed.
type Controller struct {
	host     Host
	emitter  Emitter
	store    *settings.Store
	displays Snapshotter
	position PositionFn
	siteID   string
	labels   Labels
	logger   *slog.Logger

	mu      sync.Mutex
	current Item
}

func NewController(host Host, emitter Emitter, store *settings.Store, displays Snapshotter, position PositionFn, siteID string, labels Labels, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		host:     host,
		emitter:  emitter,
		store:    store,
		displays: displays,
		position: position,
		siteID:   siteID,
		labels:   labels,
		logger:   logger,
	}
}

// Rebuild regenerates the whole menu from a fresh topology snapshot, the
// window's current display, and the active site's persisted state, then
// replaces the host's tree in one push. A snapshot failure leaves the
// previous menu in place.
func (c *Controller) Rebuild() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot, err := c.displays()
	if err != nil {
		return fmt.Errorf("failed to snapshot displays: %w", err)
	}

	currentIndex := 0
	hasCurrent := false
	if pos, err := c.position(); err == nil {
		currentIndex, hasCurrent = display.Locate(pos, snapshot)
	} else {
		c.logger.Debug("window position unavailable, building menu without current display", "error", err)
	}

	state := c.store.Read().Site(c.siteID)

	root := Build(snapshot, currentIndex, hasCurrent, state, c.labels)
	if err := c.host.UpdateMenu(root); err != nil {
		return fmt.Errorf("failed to push menu: %w", err)
	}
	c.current = root

	if c.emitter != nil {
		if err := c.emitter.Emit("menu-rebuilt", nil); err != nil {
			c.logger.Debug("menu-rebuilt emit failed", "error", err)
		}
	}
	return nil
}

// SetChecked flips one checkable item's state and pushes the updated tree.
// Unknown ids are ignored.
func (c *Controller) SetChecked(id string, checked bool) {
	c.mutateItem(id, func(it *Item) { it.Checked = checked })
}

// SetEnabled enables or disables one item and pushes the updated tree.
func (c *Controller) SetEnabled(id string, enabled bool) {
	c.mutateItem(id, func(it *Item) { it.Disabled = !enabled })
}

// CurrentIndex locates the window in a fresh snapshot. The second return
// is false when the window sits outside every display or the position
// cannot be read.
func (c *Controller) CurrentIndex() (int, bool) {
	snapshot, err := c.displays()
	if err != nil {
		return 0, false
	}
	pos, err := c.position()
	if err != nil {
		return 0, false
	}
	return display.Locate(pos, snapshot)
}

func (c *Controller) mutateItem(id string, mutate func(*Item)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := findItem(&c.current, id)
	if it == nil {
		c.logger.Debug("menu item not found", "id", id)
		return
	}
	mutate(it)
	if err := c.host.UpdateMenu(c.current); err != nil {
		c.logger.Warn("failed to push menu update", "id", id, "error", err)
	}
}
