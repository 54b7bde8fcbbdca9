package display

// Locate determines which display of a topology snapshot contains the given
// window position. Each display is tested in its own logical frame: on
// mixed-DPI setups there is no single global scale, so both the display
// bounds and the window position are divided by that display's scale before
// the containment test.
//
// Containment is half-open on both axes: [origin, origin+size). The first
// matching display in enumeration order wins. The second return value is
// false when no display contains the position, e.g. a window dragged
// transiently off-screen.
func Locate(pos Point, displays []Display) (int, bool) {
	for _, d := range displays {
		bounds := d.LogicalBounds()
		wx := ToLogical(pos.X, d.Scale)
		wy := ToLogical(pos.Y, d.Scale)

		if wx >= bounds.X && wx < bounds.X+bounds.Width &&
			wy >= bounds.Y && wy < bounds.Y+bounds.Height {
			return d.Index, true
		}
	}
	return 0, false
}
