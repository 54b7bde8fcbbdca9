// Package display holds the topology data model and the pure coordinate
// math shared by the locator, the watcher and the menu layer. Physical
// coordinates are device pixels; logical coordinates are scale-independent
// points (physical / scale).
package display

// Point is a position in physical pixels.
type Point struct {
	X int
	Y int
}

// Size is a width/height pair. Whether it is physical or logical depends
// on the call site; conversion helpers below are explicit about direction.
type Size struct {
	Width  int
	Height int
}

// Rect describes a rectangular region in physical pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Display describes one physical display in a topology snapshot.
//
// Index is the ordinal position within the snapshot it came from. It is not
// a stable identifier: unplugging and replugging a display may reorder the
// next snapshot, so indices must never be compared across snapshots.
type Display struct {
	Index  int
	Name   string
	Bounds Rect
	Scale  float64
}

// LogicalRect is a rectangle in logical points. Origins and sizes keep
// fractional precision so containment tests on mixed-DPI setups stay exact.
type LogicalRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ToLogical converts a physical value to logical points.
func ToLogical(physical int, scale float64) float64 {
	return float64(physical) / scale
}

// ToPhysical converts a logical value back to physical pixels, truncating
// toward zero.
func ToPhysical(logical float64, scale float64) int {
	return int(logical * scale)
}

// LogicalBounds returns the display's bounds converted into its own logical
// frame.
func (d Display) LogicalBounds() LogicalRect {
	return LogicalRect{
		X:      ToLogical(d.Bounds.X, d.Scale),
		Y:      ToLogical(d.Bounds.Y, d.Scale),
		Width:  ToLogical(d.Bounds.Width, d.Scale),
		Height: ToLogical(d.Bounds.Height, d.Scale),
	}
}

// LogicalSize converts a physical window size into the display's logical
// frame, truncating toward zero per axis.
func (d Display) LogicalSize(physical Size) Size {
	return Size{
		Width:  int(ToLogical(physical.Width, d.Scale)),
		Height: int(ToLogical(physical.Height, d.Scale)),
	}
}

// CenterOn computes the logical position that centers a window of the given
// logical size on the display. The fractional remainder is truncated toward
// zero. A window larger than the display yields negative offsets; that is
// intentional and left unclamped.
func CenterOn(d Display, window Size) (x, y int) {
	bounds := d.LogicalBounds()
	x = int(bounds.X + (bounds.Width-float64(window.Width))/2)
	y = int(bounds.Y + (bounds.Height-float64(window.Height))/2)
	return x, y
}
