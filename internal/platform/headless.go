package platform

import (
	"fmt"
	"image"
	"sort"
	"sync"
)

// Headless is an in-memory backend with a fixed monitor topology. Surfaces
// paint into RGBA buffers and never reach a display server.
type Headless struct {
	mu       sync.Mutex
	displays []Display
	pointer  Point
	surfaces []*HeadlessSurface
}

var _ Backend = (*Headless)(nil)

// NewHeadless creates a headless backend. With no displays a single
// 1920x1080 monitor at the origin is used.
func NewHeadless(displays []Display) *Headless {
	if len(displays) == 0 {
		displays = []Display{{
			ID:     0,
			Name:   "HEADLESS-0",
			Bounds: Rect{Width: 1920, Height: 1080},
		}}
	}
	out := make([]Display, len(displays))
	copy(out, displays)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return &Headless{displays: out}
}

// SetDisplays replaces the monitor topology.
func (h *Headless) SetDisplays(displays []Display) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.displays = append([]Display(nil), displays...)
}

// SetPointer moves the virtual pointer.
func (h *Headless) SetPointer(x, y int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pointer = Point{X: x, Y: y}
}

// Displays returns the configured monitors.
func (h *Headless) Displays() ([]Display, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Display(nil), h.displays...), nil
}

// Pointer returns the virtual pointer position.
func (h *Headless) Pointer() (Point, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pointer, nil
}

// CreateSurface allocates an off-screen surface.
func (h *Headless) CreateSurface(bounds Rect, handler SurfaceHandler) (Surface, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", bounds.Width, bounds.Height)
	}
	s := &HeadlessSurface{
		backend: h,
		bounds:  bounds,
		handler: handler,
		canvas:  image.NewRGBA(image.Rect(0, 0, bounds.Width, bounds.Height)),
	}
	h.mu.Lock()
	h.surfaces = append(h.surfaces, s)
	h.mu.Unlock()
	return s, nil
}

// Surfaces returns the surfaces that have not been destroyed.
func (h *Headless) Surfaces() []*HeadlessSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := make([]*HeadlessSurface, 0, len(h.surfaces))
	for _, s := range h.surfaces {
		if !s.Destroyed() {
			live = append(live, s)
		}
	}
	return live
}

// HeadlessSurface is the Surface implementation used by Headless.
type HeadlessSurface struct {
	backend *Headless

	mu        sync.Mutex
	bounds    Rect
	handler   SurfaceHandler
	canvas    *image.RGBA
	frames    int
	destroyed bool
}

func (s *HeadlessSurface) Move(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	s.bounds.X = x
	s.bounds.Y = y
	return nil
}

func (s *HeadlessSurface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	s.bounds.Width = width
	s.bounds.Height = height
	s.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

func (s *HeadlessSurface) RequestFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	if s.handler != nil {
		s.handler.Paint(s.canvas)
	}
	s.frames++
	return nil
}

// MouseOver reports whether the virtual pointer is inside the surface.
func (s *HeadlessSurface) MouseOver() bool {
	p, _ := s.backend.Pointer()
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.destroyed && s.bounds.Contains(p.X, p.Y)
}

func (s *HeadlessSurface) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	s.destroyed = true
	return nil
}

// Bounds returns the surface geometry.
func (s *HeadlessSurface) Bounds() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// Frames returns how many frames have been painted.
func (s *HeadlessSurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Destroyed reports whether Destroy has been called.
func (s *HeadlessSurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Snapshot returns a copy of the last painted frame.
func (s *HeadlessSurface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.canvas.Bounds())
	copy(out.Pix, s.canvas.Pix)
	return out
}

// Drag simulates a press-move-release sequence through the handler.
func (s *HeadlessSurface) Drag(from Point, to ...Point) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		return
	}
	handler.DragBegin(from)
	last := from
	for _, p := range to {
		handler.DragMove(p)
		last = p
	}
	handler.DragEnd(last)
}

// Scroll simulates a wheel event at the surface origin.
func (s *HeadlessSurface) Scroll(delta int) {
	s.mu.Lock()
	handler := s.handler
	origin := Point{X: s.bounds.X, Y: s.bounds.Y}
	s.mu.Unlock()
	if handler != nil {
		handler.Scroll(delta, origin)
	}
}

// Pan simulates a secondary-button press-drag-release through the handler.
func (s *HeadlessSurface) Pan(button int, from Point, to ...Point) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		return
	}
	handler.Pointer(PointerEvent{Action: PointerPress, Button: button, Point: from})
	last := from
	for _, p := range to {
		handler.Pointer(PointerEvent{Action: PointerDrag, Button: button, Point: p})
		last = p
	}
	handler.Pointer(PointerEvent{Action: PointerRelease, Button: button, Point: last})
}
