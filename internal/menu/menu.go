// Package menu owns the shell's native menu: the tree model, the builder
// that regenerates it per topology snapshot, the controller that swaps the
// live menu atomically, and the router that dispatches activation events.
package menu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/settings"
)

// Stable action ids. These are a contract with the UI layer; renaming one
// breaks the injected content scripts.
const (
	ActionRefresh          = "refresh"
	ActionBack             = "back"
	ActionForward          = "forward"
	ActionAutoFlip         = "auto_flip"
	ActionZoomIn           = "zoom_in"
	ActionZoomOut          = "zoom_out"
	ActionZoomReset        = "zoom_reset"
	ActionReaderWide       = "reader_wide"
	ActionHideToolbar      = "hide_toolbar"
	ActionHideNavbar       = "hide_navbar"
	ActionToggleFullscreen = "toggle_fullscreen"
	ActionAbout            = "about"
	ActionCheckUpdate      = "check_update"
	ActionSettings         = "settings"
	ActionQuit             = "quit"
	ActionOfficialSite     = "official_site"
	ActionMinimize         = "minimize"
	ActionCloseWindow      = "close_window"

	moveActionPrefix = "move_to_monitor_"
)

// MoveActionID returns the action id for moving to the given display index.
func MoveActionID(index int) string {
	return fmt.Sprintf("%s%d", moveActionPrefix, index)
}

// ParseMoveAction extracts the display index from a move action id.
func ParseMoveAction(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, moveActionPrefix)
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// Item is one node of the menu tree. Leaves carry an action id; items with
// children are submenus. The zero value of Disabled keeps items enabled.
type Item struct {
	ID        string `json:"id,omitempty"`
	Label     string `json:"label,omitempty"`
	Accel     string `json:"accel,omitempty"`
	Checkable bool   `json:"checkable,omitempty"`
	Checked   bool   `json:"checked,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
	Separator bool   `json:"separator,omitempty"`
	Items     []Item `json:"items,omitempty"`
}

// IsSubmenu reports whether the item has children.
func (it Item) IsSubmenu() bool {
	return len(it.Items) > 0
}

func separator() Item {
	return Item{Separator: true}
}

// Labels is the localizable label set. MoveToDisplay is a format template
// taking the display name.
type Labels struct {
	App    string
	View   string
	Window string
	Help   string

	Refresh          string
	Back             string
	Forward          string
	AutoFlip         string
	ZoomReset        string
	ZoomIn           string
	ZoomOut          string
	ToggleFullscreen string
	ReaderWide       string
	HideToolbar      string
	HideNavbar       string
	About            string
	CheckUpdate      string
	Settings         string
	Quit             string
	Minimize         string
	Close            string
	OfficialSite     string
	MoveToDisplay    string
}

// DefaultLabels returns the zh-CN label set.
func DefaultLabels() Labels {
	return Labels{
		App:    "微信阅读",
		View:   "视图",
		Window: "窗口",
		Help:   "帮助",

		Refresh:          "刷新",
		Back:             "后退",
		Forward:          "前进",
		AutoFlip:         "自动翻页",
		ZoomReset:        "实际大小",
		ZoomIn:           "放大",
		ZoomOut:          "缩小",
		ToggleFullscreen: "切换全屏",
		ReaderWide:       "阅读变宽",
		HideToolbar:      "隐藏工具栏",
		HideNavbar:       "隐藏导航栏",
		About:            "关于",
		CheckUpdate:      "检查更新",
		Settings:         "设置",
		Quit:             "退出",
		Minimize:         "最小化",
		Close:            "关闭",
		OfficialSite:     "官方网站",
		MoveToDisplay:    "移至显示器“%s”",
	}
}

// Build constructs the full menu tree for one topology snapshot. The
// Window submenu gets one move item per display except the one the window
// currently occupies, ascending by snapshot index. When hasCurrent is
// false (window off-screen) every display gets an item. Checkable View
// items seed from the active site's persisted state.
func Build(displays []display.Display, currentIndex int, hasCurrent bool, state settings.SiteState, labels Labels) Item {
	appMenu := Item{
		Label: labels.App,
		Items: []Item{
			{ID: ActionAbout, Label: labels.About},
			{ID: ActionCheckUpdate, Label: labels.CheckUpdate},
			{ID: ActionSettings, Label: labels.Settings, Accel: "CmdOrCtrl+,"},
			separator(),
			{ID: ActionQuit, Label: labels.Quit, Accel: "CmdOrCtrl+Q"},
		},
	}

	viewMenu := Item{
		Label: labels.View,
		Items: []Item{
			{ID: ActionRefresh, Label: labels.Refresh, Accel: "CmdOrCtrl+R"},
			{ID: ActionBack, Label: labels.Back, Accel: "CmdOrCtrl+["},
			{ID: ActionForward, Label: labels.Forward, Accel: "CmdOrCtrl+]"},
			separator(),
			{ID: ActionAutoFlip, Label: labels.AutoFlip, Accel: "CmdOrCtrl+I", Checkable: true, Checked: state.AutoFlip.Active},
			separator(),
			{ID: ActionZoomReset, Label: labels.ZoomReset, Accel: "CmdOrCtrl+0"},
			{ID: ActionZoomIn, Label: labels.ZoomIn, Accel: "CmdOrCtrl+="},
			{ID: ActionZoomOut, Label: labels.ZoomOut, Accel: "CmdOrCtrl+-"},
			separator(),
			{ID: ActionToggleFullscreen, Label: labels.ToggleFullscreen, Accel: "Ctrl+Cmd+F"},
			separator(),
			{ID: ActionReaderWide, Label: labels.ReaderWide, Accel: "CmdOrCtrl+9", Checkable: true, Checked: state.ReaderWide},
			{ID: ActionHideToolbar, Label: labels.HideToolbar, Accel: "CmdOrCtrl+O", Checkable: true, Checked: state.HideToolbar},
			{ID: ActionHideNavbar, Label: labels.HideNavbar, Checkable: true, Checked: state.HideNavbar},
		},
	}

	windowItems := []Item{
		{ID: ActionMinimize, Label: labels.Minimize, Accel: "CmdOrCtrl+M"},
		separator(),
	}
	windowItems = append(windowItems, moveItems(displays, currentIndex, hasCurrent, labels)...)
	windowItems = append(windowItems, Item{ID: ActionCloseWindow, Label: labels.Close, Accel: "CmdOrCtrl+W"})

	windowMenu := Item{Label: labels.Window, Items: windowItems}

	helpMenu := Item{
		Label: labels.Help,
		Items: []Item{
			{ID: ActionOfficialSite, Label: labels.OfficialSite},
		},
	}

	return Item{Items: []Item{appMenu, viewMenu, windowMenu, helpMenu}}
}

// moveItems generates the dynamic move-to-display segment in ascending
// index order, skipping the current display.
func moveItems(displays []display.Display, currentIndex int, hasCurrent bool, labels Labels) []Item {
	items := make([]Item, 0, len(displays))
	for _, d := range displays {
		if hasCurrent && d.Index == currentIndex {
			continue
		}
		items = append(items, Item{
			ID:    MoveActionID(d.Index),
			Label: fmt.Sprintf(labels.MoveToDisplay, d.Name),
		})
	}
	return items
}

// findItem returns a pointer to the item with the given id, walking the
// tree depth-first.
func findItem(root *Item, id string) *Item {
	for i := range root.Items {
		it := &root.Items[i]
		if it.ID == id {
			return it
		}
		if found := findItem(it, id); found != nil {
			return found
		}
	}
	return nil
}
