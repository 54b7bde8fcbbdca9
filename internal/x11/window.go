package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/readershell/internal/display"
)

// FindWindowByClass returns the first managed window whose WM_CLASS class
// matches (case-insensitive).
func (c *Connection) FindWindowByClass(class string) (xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to list clients: %w", err)
	}

	for _, windowID := range clients {
		wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(wmClass.Class), class) {
			return windowID, nil
		}
	}
	return 0, fmt.Errorf("no window with class %q", class)
}

// OuterPosition returns the window's outer (frame-inclusive) top-left
// corner in root coordinates, physical pixels.
func (c *Connection) OuterPosition(windowID xproto.Window) (display.Point, error) {
	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return display.Point{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	x := int(translate.DstX)
	y := int(translate.DstY)

	// The translated origin is the client area; back out the frame the WM
	// added so the position matches what the user sees.
	if extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID); err == nil {
		x -= int(extents.Left)
		y -= int(extents.Top)
	}

	return display.Point{X: x, Y: y}, nil
}

// OuterSize returns the window's frame-inclusive size in physical pixels.
func (c *Connection) OuterSize(windowID xproto.Window) (display.Size, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return display.Size{}, fmt.Errorf("failed to get geometry: %w", err)
	}

	w := int(geom.Width)
	h := int(geom.Height)
	if extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID); err == nil {
		w += int(extents.Left) + int(extents.Right)
		h += int(extents.Top) + int(extents.Bottom)
	}

	return display.Size{Width: w, Height: h}, nil
}

// MoveWindow moves a window to the given root position in physical pixels.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	win := xwindow.New(c.XUtil, windowID)

	// EWMH moveresize plays nicer with reparenting WMs; fall back to a
	// direct configure when the WM ignores it.
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		win.Move(x, y)
	}
	return nil
}

// Minimize iconifies a window via WM_CHANGE_STATE.
func (c *Connection) Minimize(windowID xproto.Window) error {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// CloseWindow requests a graceful close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	deleteReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return err
	}
	protocolsReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		windowID,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// IsFullscreen reports whether the window carries _NET_WM_STATE_FULLSCREEN.
func (c *Connection) IsFullscreen(windowID xproto.Window) (bool, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false, err
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_FULLSCREEN" {
			return true, nil
		}
	}
	return false, nil
}

// SetFullscreen adds or removes _NET_WM_STATE_FULLSCREEN.
func (c *Connection) SetFullscreen(windowID xproto.Window, on bool) error {
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	return ewmh.WmStateReq(c.XUtil, windowID, action, "_NET_WM_STATE_FULLSCREEN")
}
