package menu

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/settings"
	"github.com/1broseidon/readershell/internal/sites"
)

// WindowOps is the slice of the platform backend the router drives.
type WindowOps interface {
	WindowPosition() (display.Point, error)
	WindowSize() (display.Size, error)
	SetLogicalPosition(x, y int) error
	Minimize() error
	CloseWindow() error
	Fullscreen() (bool, error)
	SetFullscreen(on bool) error
}

// UI is the channel back into the webview: Emit delivers named events to
// the page's event listeners, Eval runs a script in the page.
type UI interface {
	Emit(event string, payload any) error
	Eval(js string) error
}

// Rebuilder regenerates the menu. Satisfied by *Controller.
type Rebuilder interface {
	Rebuild() error
}

// Router maps activated menu ids to their effects. Dispatch is safe to
// call from multiple goroutines; the window operations themselves are
// serialized by the X server.
type Router struct {
	ops         WindowOps
	ui          UI
	rebuilder   Rebuilder
	store       *settings.Store
	displays    Snapshotter
	site        sites.Site
	settleDelay time.Duration
	openURL     func(url string) error
	quit        func()
	logger      *slog.Logger

	mu            sync.Mutex
	settlePending bool
}

func NewRouter(ops WindowOps, ui UI, rebuilder Rebuilder, store *settings.Store, displays Snapshotter, site sites.Site, settleDelay time.Duration, openURL func(string) error, quit func(), logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		ops:         ops,
		ui:          ui,
		rebuilder:   rebuilder,
		store:       store,
		displays:    displays,
		site:        site,
		settleDelay: settleDelay,
		openURL:     openURL,
		quit:        quit,
		logger:      logger,
	}
}

// Dispatch handles one menu activation. Unknown ids are logged and
// dropped; a stale move id (display gone since the menu was built) is a
// no-op beyond a log line.
func (r *Router) Dispatch(id string) {
	if index, ok := ParseMoveAction(id); ok {
		if err := r.MoveToDisplay(index); err != nil {
			r.logger.Warn("move to display failed", "index", index, "error", err)
		}
		return
	}

	var err error
	switch id {
	case ActionRefresh:
		err = r.ui.Eval("window.location.reload()")
	case ActionBack:
		err = r.ui.Eval("history.back()")
	case ActionForward:
		err = r.ui.Eval("history.forward()")
	case ActionZoomIn:
		err = r.ui.Eval(zoomScript("+"))
	case ActionZoomOut:
		err = r.ui.Eval(zoomScript("-"))
	case ActionZoomReset:
		err = r.ui.Eval("document.body.style.zoom = ''")

	case ActionAutoFlip, ActionReaderWide, ActionHideToolbar, ActionHideNavbar:
		// Content-level toggles are the page's job; forward the bare id and
		// let it update state through the settings API.
		err = r.ui.Emit("menu-action", id)

	case ActionAbout, ActionCheckUpdate, ActionSettings:
		err = r.ui.Emit("open-pane", id)

	case ActionToggleFullscreen:
		err = r.toggleFullscreen()
	case ActionMinimize:
		err = r.ops.Minimize()
	case ActionCloseWindow:
		r.ClearAutoFlip()
		err = r.ops.CloseWindow()
	case ActionOfficialSite:
		err = r.openURL(r.site.HomeURL)
	case ActionQuit:
		r.ClearAutoFlip()
		r.quit()

	default:
		r.logger.Warn("unknown menu action", "id", id)
		return
	}

	if err != nil {
		r.logger.Warn("menu action failed", "id", id, "error", err)
	}
}

// MoveToDisplay centers the shell window on the display with the given
// snapshot index. Moving to the display the window already occupies is a
// no-op. After the move a single rebuild is scheduled behind the settle
// delay so the menu reflects where the window manager actually put it.
func (r *Router) MoveToDisplay(index int) error {
	snapshot, err := r.displays()
	if err != nil {
		return fmt.Errorf("failed to snapshot displays: %w", err)
	}

	var target *display.Display
	for i := range snapshot {
		if snapshot[i].Index == index {
			target = &snapshot[i]
			break
		}
	}
	if target == nil {
		r.logger.Warn("display no longer present", "index", index)
		return nil
	}

	if pos, err := r.ops.WindowPosition(); err == nil {
		if current, ok := display.Locate(pos, snapshot); ok && current == index {
			r.logger.Debug("window already on target display", "index", index)
			return nil
		}
	}

	size, err := r.ops.WindowSize()
	if err != nil {
		return fmt.Errorf("failed to read window size: %w", err)
	}

	x, y := display.CenterOn(*target, target.LogicalSize(size))
	if err := r.ops.SetLogicalPosition(x, y); err != nil {
		return fmt.Errorf("failed to move window: %w", err)
	}

	r.scheduleRebuild()
	return nil
}

// scheduleRebuild queues one settle-delayed rebuild. A rebuild already
// pending absorbs further requests; it will observe the final position.
func (r *Router) scheduleRebuild() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settlePending {
		return
	}
	r.settlePending = true

	time.AfterFunc(r.settleDelay, func() {
		r.mu.Lock()
		r.settlePending = false
		r.mu.Unlock()

		if err := r.rebuilder.Rebuild(); err != nil {
			r.logger.Warn("menu rebuild after move failed", "error", err)
		}
	})
}

func (r *Router) toggleFullscreen() error {
	on, err := r.ops.Fullscreen()
	if err != nil {
		return fmt.Errorf("failed to read fullscreen state: %w", err)
	}
	return r.ops.SetFullscreen(!on)
}

// ClearAutoFlip deactivates auto page flipping for every site, bumping the
// store version so a late write from the page cannot resurrect it. Called
// on close and quit; best-effort. The sites value is edited as raw JSON so
// fields the page stored that the shell does not model survive untouched.
func (r *Router) ClearAutoFlip() {
	doc := r.store.Read()
	raw, ok := doc["sites"]
	if !ok {
		return
	}

	var siteDocs map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &siteDocs); err != nil {
		return
	}

	changed := false
	for _, fields := range siteDocs {
		flipRaw, ok := fields["autoFlip"]
		if !ok {
			continue
		}
		var flip map[string]json.RawMessage
		if err := json.Unmarshal(flipRaw, &flip); err != nil {
			continue
		}
		var active bool
		if err := json.Unmarshal(flip["active"], &active); err != nil || !active {
			continue
		}

		flip["active"] = json.RawMessage("false")
		newFlip, err := json.Marshal(flip)
		if err != nil {
			continue
		}
		fields["autoFlip"] = newFlip
		changed = true
	}
	if !changed {
		return
	}

	newSites, err := json.Marshal(siteDocs)
	if err != nil {
		return
	}
	if res := r.store.WriteVersioned(settings.Document{"sites": newSites}, doc.Version()+1); res != settings.Committed {
		r.logger.Warn("auto flip clear lost a write race")
	}
}

func zoomScript(dir string) string {
	return fmt.Sprintf(`(() => {
  const cur = parseFloat(document.body.style.zoom) || 1;
  document.body.style.zoom = Math.min(3, Math.max(0.5, cur %s 0.1)).toFixed(2);
})()`, dir)
}
