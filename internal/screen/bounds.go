// Package screen computes desktop geometry for module placement: the union of
// all monitors (the drag boundary) and the monitor under a given point.
//
// Nothing here is cached. Monitors can be hotplugged, so every query goes
// back to the topology source.
package screen

import (
	"errors"
	"fmt"

	"github.com/1broseidon/deskmod/internal/platform"
)

// ErrNoDisplays is returned when the topology reports no monitors.
var ErrNoDisplays = errors.New("no displays")

// Rect is an absolute screen rectangle with exclusive max edges.
type Rect struct {
	MinX int
	MinY int
	MaxX int
	MaxY int
}

// FromPlatform converts a platform rectangle.
func FromPlatform(r platform.Rect) Rect {
	return Rect{MinX: r.X, MinY: r.Y, MaxX: r.X + r.Width, MaxY: r.Y + r.Height}
}

func (r Rect) Width() int  { return r.MaxX - r.MinX }
func (r Rect) Height() int { return r.MaxY - r.MinY }

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Center returns the origin that centers a w×h box inside r.
func (r Rect) Center(w, h int) (int, int) {
	return r.MinX + r.Width()/2 - w/2, r.MinY + r.Height()/2 - h/2
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %d,%d]", r.MinX, r.MinY, r.MaxX, r.MaxY)
}

// Union returns the component-wise min of origins and max of far edges
// across all displays.
func Union(displays []platform.Display) (Rect, error) {
	if len(displays) == 0 {
		return Rect{}, ErrNoDisplays
	}
	u := FromPlatform(displays[0].Bounds)
	for _, d := range displays[1:] {
		r := FromPlatform(d.Bounds)
		u.MinX = min(u.MinX, r.MinX)
		u.MinY = min(u.MinY, r.MinY)
		u.MaxX = max(u.MaxX, r.MaxX)
		u.MaxY = max(u.MaxY, r.MaxY)
	}
	return u, nil
}

// Target returns the display containing the point. A point in a gap between
// monitors resolves to the nearest one.
func Target(displays []platform.Display, x, y int) (Rect, error) {
	if len(displays) == 0 {
		return Rect{}, ErrNoDisplays
	}
	best := FromPlatform(displays[0].Bounds)
	bestDist := -1
	for _, d := range displays {
		r := FromPlatform(d.Bounds)
		if r.Contains(x, y) {
			return r, nil
		}
		if dist := r.distance(x, y); bestDist < 0 || dist < bestDist {
			best, bestDist = r, dist
		}
	}
	return best, nil
}

// distance is the squared distance from the point to the nearest edge of r.
func (r Rect) distance(x, y int) int {
	dx := 0
	switch {
	case x < r.MinX:
		dx = r.MinX - x
	case x >= r.MaxX:
		dx = x - (r.MaxX - 1)
	}
	dy := 0
	switch {
	case y < r.MinY:
		dy = r.MinY - y
	case y >= r.MaxY:
		dy = y - (r.MaxY - 1)
	}
	return dx*dx + dy*dy
}

// Clamp keeps a w×h box at (x, y) inside bounds. When the box is wider or
// taller than bounds it is pinned to the minimum edge.
func Clamp(x, y, w, h int, bounds Rect) (int, int) {
	if x > bounds.MaxX-w {
		x = bounds.MaxX - w
	}
	if x < bounds.MinX {
		x = bounds.MinX
	}
	if y > bounds.MaxY-h {
		y = bounds.MaxY - h
	}
	if y < bounds.MinY {
		y = bounds.MinY
	}
	return x, y
}

// RightBound reports whether the horizontal center of a box at x with width w
// lies in the right half of target.
func RightBound(x, w int, target Rect) bool {
	centerX := x + w/2
	return centerX-target.MinX > target.Width()/2
}

// Topology is the monitor and pointer source queried by Bounds.
type Topology interface {
	Displays() ([]platform.Display, error)
	Pointer() (platform.Point, error)
}

// Bounds answers geometry queries against a live topology.
type Bounds struct {
	topo Topology
}

// NewBounds wraps a topology source.
func NewBounds(topo Topology) *Bounds {
	return &Bounds{topo: topo}
}

// Union returns the combined desktop rectangle.
func (b *Bounds) Union() (Rect, error) {
	displays, err := b.topo.Displays()
	if err != nil {
		return Rect{}, err
	}
	return Union(displays)
}

// Target returns the monitor rectangle containing the point.
func (b *Bounds) Target(x, y int) (Rect, error) {
	displays, err := b.topo.Displays()
	if err != nil {
		return Rect{}, err
	}
	return Target(displays, x, y)
}

// Pointer returns the current pointer position.
func (b *Bounds) Pointer() (platform.Point, error) {
	return b.topo.Pointer()
}

// CenterUnderPointer returns the origin that centers a w×h box on the
// monitor currently under the pointer.
func (b *Bounds) CenterUnderPointer(w, h int) (int, int, error) {
	p, err := b.topo.Pointer()
	if err != nil {
		return 0, 0, fmt.Errorf("pointer: %w", err)
	}
	target, err := b.Target(p.X, p.Y)
	if err != nil {
		return 0, 0, err
	}
	x, y := target.Center(w, h)
	return x, y, nil
}

// RightBound derives the right-bound flag for a box at (x, y) from the
// monitor under its center.
func (b *Bounds) RightBound(x, y, w, h int) (bool, error) {
	target, err := b.Target(x+w/2, y+h/2)
	if err != nil {
		return false, err
	}
	return RightBound(x, w, target), nil
}
