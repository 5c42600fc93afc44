package x11

import (
	"errors"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
)

// raiseInterval bounds how often a surface re-stacks itself above other windows.
const raiseInterval = 3 * time.Second

// ErrSurfaceDestroyed is returned by Surface methods after Destroy.
var ErrSurfaceDestroyed = errors.New("surface destroyed")

// SurfaceCallbacks receives paint and pointer events for a Surface.
// Coordinates are root-relative. Button 1 drags arrive as DragBegin/Move/End,
// buttons 2 and 3 as ButtonPress/Drag/Release.
type SurfaceCallbacks interface {
	Paint(dst draw.Image)
	DragBegin(x, y int)
	DragMove(x, y int)
	DragEnd(x, y int)
	Scroll(delta, x, y int)
	ButtonPress(button, x, y int)
	ButtonDrag(button, x, y int)
	ButtonRelease(button, x, y int)
}

// secondaryButtons are forwarded to the module instead of moving the window.
var secondaryButtons = map[string]int{"2": 2, "3": 3}

// Surface is an override-redirect window backed by an xgraphics image.
type Surface struct {
	xu  *xgbutil.XUtil
	win xproto.Window
	cb  SurfaceCallbacks

	mu        sync.Mutex
	img       *xgraphics.Image
	destroyed bool
	lastRaise time.Time

	hover atomic.Bool
}

// NewSurface creates and maps an always-on-top window at the given geometry.
func (c *Connection) NewSurface(x, y, width, height int, cb SurfaceCallbacks) (*Surface, error) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	conn := c.XUtil.Conn()
	screen := c.XUtil.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	eventMask := uint32(xproto.EventMaskExposure |
		xproto.EventMaskEnterWindow |
		xproto.EventMaskLeaveWindow |
		xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease)

	// Value list order follows the bit positions of the mask (low to high).
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		c.Root,
		int16(x), int16(y),
		uint16(width), uint16(height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{0, 1, eventMask},
	).Check()
	if err != nil {
		return nil, err
	}

	s := &Surface{xu: c.XUtil, win: wid, cb: cb}

	// Hints are advisory for override-redirect windows; compositors still read them.
	_ = icccm.WmClassSet(c.XUtil, wid, &icccm.WmClass{Instance: "deskmod", Class: "Deskmod"})
	_ = ewmh.WmWindowTypeSet(c.XUtil, wid, []string{"_NET_WM_WINDOW_TYPE_UTILITY"})
	_ = ewmh.WmStateSet(c.XUtil, wid, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_SKIP_TASKBAR"})

	if err := s.allocImage(width, height); err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}

	s.connectEvents()

	xproto.MapWindow(conn, wid)
	s.raise(time.Now())
	return s, nil
}

func (s *Surface) allocImage(width, height int) error {
	img := xgraphics.New(s.xu, image.Rect(0, 0, width, height))
	if err := img.XSurfaceSet(s.win); err != nil {
		img.Destroy()
		return err
	}
	if s.img != nil {
		s.img.Destroy()
	}
	s.img = img
	return nil
}

func (s *Surface) connectEvents() {
	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count == 0 {
			s.paint()
		}
	}).Connect(s.xu, s.win)

	xevent.EnterNotifyFun(func(xu *xgbutil.XUtil, ev xevent.EnterNotifyEvent) {
		s.hover.Store(true)
	}).Connect(s.xu, s.win)

	xevent.LeaveNotifyFun(func(xu *xgbutil.XUtil, ev xevent.LeaveNotifyEvent) {
		s.hover.Store(false)
	}).Connect(s.xu, s.win)

	mousebind.Drag(s.xu, s.win, s.win, "1", true,
		func(xu *xgbutil.XUtil, rootX, rootY, eventX, eventY int) (bool, xproto.Cursor) {
			s.cb.DragBegin(rootX, rootY)
			return true, 0
		},
		func(xu *xgbutil.XUtil, rootX, rootY, eventX, eventY int) {
			s.cb.DragMove(rootX, rootY)
		},
		func(xu *xgbutil.XUtil, rootX, rootY, eventX, eventY int) {
			s.cb.DragEnd(rootX, rootY)
		},
	)

	for name, button := range secondaryButtons {
		button := button
		mousebind.Drag(s.xu, s.win, s.win, name, true,
			func(xu *xgbutil.XUtil, rootX, rootY, eventX, eventY int) (bool, xproto.Cursor) {
				s.cb.ButtonPress(button, rootX, rootY)
				return true, 0
			},
			func(xu *xgbutil.XUtil, rootX, rootY, eventX, eventY int) {
				s.cb.ButtonDrag(button, rootX, rootY)
			},
			func(xu *xgbutil.XUtil, rootX, rootY, eventX, eventY int) {
				s.cb.ButtonRelease(button, rootX, rootY)
			},
		)
	}

	for button, delta := range map[string]int{"4": 1, "5": -1} {
		delta := delta
		err := mousebind.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
			s.cb.Scroll(delta, int(ev.RootX), int(ev.RootY))
		}).Connect(s.xu, s.win, button, false, true)
		if err != nil {
			slog.Warn("failed to bind scroll button", "window", s.win, "button", button, "error", err)
		}
	}
}

// Move repositions the window and keeps it stacked on top.
func (s *Surface) Move(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	return xproto.ConfigureWindowChecked(
		s.xu.Conn(),
		s.win,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowStackMode,
		[]uint32{uint32(int32(x)), uint32(int32(y)), xproto.StackModeAbove},
	).Check()
}

// Resize changes the window size and reallocates the backing image.
func (s *Surface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	err := xproto.ConfigureWindowChecked(
		s.xu.Conn(),
		s.win,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)},
	).Check()
	if err != nil {
		return err
	}
	return s.allocImage(width, height)
}

// RequestFrame repaints the window contents from the callbacks.
func (s *Surface) RequestFrame() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	now := time.Now()
	if now.Sub(s.lastRaise) >= raiseInterval {
		s.raise(now)
	}
	s.mu.Unlock()

	s.paint()
	return nil
}

// MouseOver reports whether the pointer is currently inside the window.
func (s *Surface) MouseOver() bool {
	return s.hover.Load()
}

// Destroy unmaps and destroys the window. Further calls return an error.
func (s *Surface) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	s.destroyed = true

	mousebind.Detach(s.xu, s.win)
	xevent.Detach(s.xu, s.win)
	if s.img != nil {
		s.img.Destroy()
		s.img = nil
	}
	xproto.UnmapWindow(s.xu.Conn(), s.win)
	return xproto.DestroyWindowChecked(s.xu.Conn(), s.win).Check()
}

func (s *Surface) paint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.img == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("paint panic recovered", "window", s.win, "panic", r)
		}
	}()

	s.cb.Paint(s.img)
	s.img.XDraw()
	s.img.XPaint(s.win)
}

func (s *Surface) raise(now time.Time) {
	xproto.ConfigureWindow(
		s.xu.Conn(),
		s.win,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	)
	s.lastRaise = now
}
