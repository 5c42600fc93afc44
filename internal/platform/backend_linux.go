//go:build linux

package platform

import (
	"errors"
	"fmt"
	"image/draw"
	"sort"

	"github.com/1broseidon/deskmod/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops a running EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// Pointer returns the pointer position in root coordinates.
func (b *LinuxBackend) Pointer() (Point, error) {
	conn, err := b.connection()
	if err != nil {
		return Point{}, err
	}
	x, y, err := conn.PointerPosition()
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

// CreateSurface maps a new override-redirect window at bounds.
func (b *LinuxBackend) CreateSurface(bounds Rect, handler SurfaceHandler) (Surface, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	s, err := conn.NewSurface(bounds.X, bounds.Y, bounds.Width, bounds.Height, surfaceCallbacks{handler})
	if err != nil {
		return nil, err
	}
	return linuxSurface{s}, nil
}

// linuxSurface maps x11 surface errors onto the platform sentinels.
type linuxSurface struct {
	s *x11.Surface
}

func (l linuxSurface) Move(x, y int) error { return mapSurfaceErr(l.s.Move(x, y)) }

func (l linuxSurface) Resize(width, height int) error {
	return mapSurfaceErr(l.s.Resize(width, height))
}

func (l linuxSurface) RequestFrame() error { return mapSurfaceErr(l.s.RequestFrame()) }

func (l linuxSurface) MouseOver() bool { return l.s.MouseOver() }

func (l linuxSurface) Destroy() error { return mapSurfaceErr(l.s.Destroy()) }

func mapSurfaceErr(err error) error {
	if errors.Is(err, x11.ErrSurfaceDestroyed) {
		return ErrSurfaceDestroyed
	}
	return err
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

// surfaceCallbacks adapts a SurfaceHandler to the x11 callback set.
type surfaceCallbacks struct {
	h SurfaceHandler
}

func (c surfaceCallbacks) Paint(dst draw.Image) {
	if c.h != nil {
		c.h.Paint(dst)
	}
}

func (c surfaceCallbacks) DragBegin(x, y int) {
	if c.h != nil {
		c.h.DragBegin(Point{X: x, Y: y})
	}
}

func (c surfaceCallbacks) DragMove(x, y int) {
	if c.h != nil {
		c.h.DragMove(Point{X: x, Y: y})
	}
}

func (c surfaceCallbacks) DragEnd(x, y int) {
	if c.h != nil {
		c.h.DragEnd(Point{X: x, Y: y})
	}
}

func (c surfaceCallbacks) Scroll(delta, x, y int) {
	if c.h != nil {
		c.h.Scroll(delta, Point{X: x, Y: y})
	}
}

func (c surfaceCallbacks) ButtonPress(button, x, y int) {
	c.pointer(PointerPress, button, x, y)
}

func (c surfaceCallbacks) ButtonDrag(button, x, y int) {
	c.pointer(PointerDrag, button, x, y)
}

func (c surfaceCallbacks) ButtonRelease(button, x, y int) {
	c.pointer(PointerRelease, button, x, y)
}

func (c surfaceCallbacks) pointer(action PointerAction, button, x, y int) {
	if c.h != nil {
		c.h.Pointer(PointerEvent{Action: action, Button: button, Point: Point{X: x, Y: y}})
	}
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:   m.ID,
		Name: m.Name,
		Bounds: Rect{
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		},
	}
}
