//go:build linux

package platform

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/x11"
)

// LinuxBackend implements Backend over an X11 connection, bound to one
// shell window found by WM_CLASS.
type LinuxBackend struct {
	conn           *x11.Connection
	window         xproto.Window
	scaleOverrides map[string]float64
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend opens an X11 connection and attaches to the shell window
// with the given WM_CLASS. The window must already exist; the webview layer
// creates it before the shell starts watching.
func NewLinuxBackend(windowClass string, scaleOverrides map[string]float64) (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}

	win, err := conn.FindWindowByClass(windowClass)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to find shell window: %w", err)
	}

	return &LinuxBackend{
		conn:           conn,
		window:         win,
		scaleOverrides: scaleOverrides,
	}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Displays returns all active displays in snapshot order.
func (b *LinuxBackend) Displays() ([]display.Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	return conn.GetDisplays(b.scaleOverrides)
}

// WindowPosition returns the shell window's outer position.
func (b *LinuxBackend) WindowPosition() (display.Point, error) {
	conn, err := b.connection()
	if err != nil {
		return display.Point{}, err
	}
	return conn.OuterPosition(b.window)
}

// WindowSize returns the shell window's outer size.
func (b *LinuxBackend) WindowSize() (display.Size, error) {
	conn, err := b.connection()
	if err != nil {
		return display.Size{}, err
	}
	return conn.OuterSize(b.window)
}

// SetLogicalPosition moves the window to a logical position. The target
// display is located from a fresh snapshot by containment so the logical
// value converts back with the right per-display scale.
func (b *LinuxBackend) SetLogicalPosition(x, y int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	displays, err := conn.GetDisplays(b.scaleOverrides)
	if err != nil {
		return fmt.Errorf("failed to enumerate displays for move: %w", err)
	}

	scale := 1.0
	for _, d := range displays {
		bounds := d.LogicalBounds()
		if float64(x) >= bounds.X && float64(x) < bounds.X+bounds.Width &&
			float64(y) >= bounds.Y && float64(y) < bounds.Y+bounds.Height {
			scale = d.Scale
			break
		}
	}

	return conn.MoveWindow(b.window,
		display.ToPhysical(float64(x), scale),
		display.ToPhysical(float64(y), scale))
}

// Minimize iconifies the shell window.
func (b *LinuxBackend) Minimize() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Minimize(b.window)
}

// CloseWindow requests a graceful close of the shell window.
func (b *LinuxBackend) CloseWindow() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.CloseWindow(b.window)
}

// Fullscreen reports the shell window's fullscreen state.
func (b *LinuxBackend) Fullscreen() (bool, error) {
	conn, err := b.connection()
	if err != nil {
		return false, err
	}
	return conn.IsFullscreen(b.window)
}

// SetFullscreen switches the shell window's fullscreen state.
func (b *LinuxBackend) SetFullscreen(on bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetFullscreen(b.window, on)
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}
