package platform

import (
	"errors"
	"image/draw"
)

// ErrSurfaceDestroyed is returned by surface operations after Destroy.
var ErrSurfaceDestroyed = errors.New("surface destroyed")

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Point is a position in root (desktop) coordinates.
type Point struct {
	X int
	Y int
}

// Display describes a physical display.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
}

// PointerAction is the phase of a secondary-button drag.
type PointerAction int

const (
	PointerPress PointerAction = iota
	PointerDrag
	PointerRelease
)

// PointerEvent is a press, drag or release of a button other than the
// primary one, which always moves the surface.
type PointerEvent struct {
	Action PointerAction
	Button int
	Point  Point
}

// SurfaceHandler receives paint and input callbacks for one surface.
// All positions are in root coordinates.
type SurfaceHandler interface {
	Paint(dst draw.Image)
	DragBegin(p Point)
	DragMove(p Point)
	DragEnd(p Point)
	Scroll(delta int, p Point)
	Pointer(ev PointerEvent)
}

// Surface is a borderless, always-on-top window owned by one module.
type Surface interface {
	Move(x, y int) error
	Resize(width, height int) error
	// RequestFrame repaints the surface through its handler.
	RequestFrame() error
	MouseOver() bool
	Destroy() error
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Displays() ([]Display, error)
	Pointer() (Point, error)
	CreateSurface(bounds Rect, handler SurfaceHandler) (Surface, error)
}
