package lifecycle

import (
	"image/draw"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/platform"
)

// surfaceHandler routes surface callbacks to one module.
type surfaceHandler struct {
	c *Coordinator
	m *ModuleHandle
}

var _ platform.SurfaceHandler = (*surfaceHandler)(nil)

func (s *surfaceHandler) Paint(dst draw.Image) {
	s.m.impl.Paint(dst)
}

func (s *surfaceHandler) DragBegin(p platform.Point) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}
	m.drag.Press(p, m.x, m.y)
}

func (s *surfaceHandler) DragMove(p platform.Point) {
	m := s.m
	union, err := s.c.bounds.Union()
	if err != nil {
		s.c.logger.Debug("drag bounds unavailable", "module", m.key, "error", err)
		return
	}

	m.mu.Lock()
	if !m.enabled || !m.drag.Active() {
		m.mu.Unlock()
		return
	}
	x, y := m.drag.Move(p, m.width, m.height, union)
	m.x, m.y, m.hasPos = x, y, true
	surface := m.surface
	m.mu.Unlock()

	if surface != nil {
		if err := surface.Move(x, y); err != nil {
			s.c.logger.Debug("surface move failed", "module", m.key, "error", err)
		}
	}

	if rb, err := s.c.bounds.RightBound(x, y, m.width, m.height); err == nil {
		m.mu.Lock()
		m.rightBound = rb
		m.mu.Unlock()
	}
}

func (s *surfaceHandler) DragEnd(p platform.Point) {
	m := s.m
	m.mu.Lock()
	wasActive := m.drag.Active()
	m.drag.Release()
	m.mu.Unlock()
	if !wasActive {
		return
	}

	h := m.owner
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := s.c.save(h, nil); err != nil {
		s.c.logger.Error("failed to persist module position", "addon", h.name, "module", m.key, "error", err)
	}
}

func (s *surfaceHandler) Scroll(delta int, p platform.Point) {
	sc, ok := s.m.impl.(addon.Scroller)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.c.logger.Error("panic recovered", "module", s.m.key, "op", "scroll", "panic", r)
		}
	}()
	sc.Scroll(delta)
}

func (s *surfaceHandler) Pointer(ev platform.PointerEvent) {
	m := s.m
	p, ok := m.impl.(addon.Pointer)
	if !ok {
		return
	}

	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	x, y := ev.Point.X-m.x, ev.Point.Y-m.y
	m.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.c.logger.Error("panic recovered", "module", m.key, "op", "pointer", "panic", r)
			}
		}()
		switch ev.Action {
		case platform.PointerPress:
			p.MousePressed(ev.Button, x, y)
		case platform.PointerDrag:
			p.MouseDragged(ev.Button, x, y)
		case platform.PointerRelease:
			p.MouseReleased(ev.Button, x, y)
		}
	}()

	if ev.Action != platform.PointerRelease {
		return
	}
	h := m.owner
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := s.c.save(h, nil); err != nil {
		s.c.logger.Error("failed to persist module view", "addon", h.name, "module", m.key, "error", err)
	}
}
