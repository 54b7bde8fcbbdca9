// Package platform abstracts the host windowing capabilities the shell
// consumes: display enumeration and operations on the shell's own window.
// The webview engine owns the window; this layer only observes and moves it.
package platform

import "github.com/1broseidon/readershell/internal/display"

// Backend is the host windowing capability surface.
type Backend interface {
	// Displays returns a fresh topology snapshot. Order is stable within
	// one call only.
	Displays() ([]display.Display, error)

	// WindowPosition returns the shell window's outer top-left corner in
	// physical pixels.
	WindowPosition() (display.Point, error)

	// WindowSize returns the shell window's outer size in physical pixels.
	WindowSize() (display.Size, error)

	// SetLogicalPosition moves the window so its outer top-left corner
	// lands at the given logical coordinates.
	SetLogicalPosition(x, y int) error

	Minimize() error
	CloseWindow() error
	Fullscreen() (bool, error)
	SetFullscreen(on bool) error

	Disconnect()
}
