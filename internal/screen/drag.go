package screen

import "github.com/1broseidon/deskmod/internal/platform"

// Drag tracks one press-move-release sequence for a box.
type Drag struct {
	offsetX int
	offsetY int
	active  bool
}

// Press records the pointer offset from the box origin.
func (d *Drag) Press(pointer platform.Point, originX, originY int) {
	d.offsetX = pointer.X - originX
	d.offsetY = pointer.Y - originY
	d.active = true
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool { return d.active }

// Move returns the new origin for a w×h box, clamped to bounds.
func (d *Drag) Move(pointer platform.Point, w, h int, bounds Rect) (int, int) {
	return Clamp(pointer.X-d.offsetX, pointer.Y-d.offsetY, w, h, bounds)
}

// Release ends the drag.
func (d *Drag) Release() {
	d.active = false
	d.offsetX, d.offsetY = 0, 0
}
