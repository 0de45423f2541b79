package main

import (
	"fmt"
)

// Handle identifies one edge of a crop strip that can be dragged.
type Handle string

const (
	HandleLeft   Handle = "left"
	HandleRight  Handle = "right"
	HandleTop    Handle = "top"
	HandleBottom Handle = "bottom"
)

// Handles returns the leading and trailing handle for an orientation.
func Handles(o Orientation) (leading, trailing Handle) {
	if o == Horizontal {
		return HandleLeft, HandleRight
	}
	return HandleTop, HandleBottom
}

func (h Handle) leading() bool {
	return h == HandleLeft || h == HandleTop
}

func (h Handle) belongsTo(o Orientation) bool {
	leading, trailing := Handles(o)
	return h == leading || h == trailing
}

// Point is a pointer position in preview pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the on-screen size of an entry's preview. Pointer deltas are
// measured against it. A zero dimension falls back to the source bitmap.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResizeSession is a live handle drag on one entry. The crop is committed on
// every Update, so End has nothing left to compute.
type ResizeSession struct {
	entry       *ImageEntry
	handle      Handle
	orientation Orientation
	start       Point
	extent      float64

	// pixel geometry captured at begin
	startNear float64
	startSize float64

	done bool
}

// BeginResize starts dragging handle on entry from the pointer position start.
func BeginResize(entry *ImageEntry, handle Handle, start Point, view Viewport) (*ResizeSession, error) {
	o := entry.Crop.Orientation
	if !handle.belongsTo(o) {
		return nil, fmt.Errorf("%w: %q on %s crop", ErrUnknownHandle, handle, o)
	}

	b := entry.Bitmap.Bounds()
	extent := float64(o.Extent(b.Dx(), b.Dy()))
	if v := axis(o, view.Width, view.Height); v > 0 {
		extent = v
	}
	if extent <= 0 {
		return nil, fmt.Errorf("%w: zero extent", ErrInvalidGeometry)
	}

	return &ResizeSession{
		entry:       entry,
		handle:      handle,
		orientation: o,
		start:       start,
		extent:      extent,
		startNear:   entry.Crop.Position / 100 * extent,
		startSize:   entry.Crop.Size / 100 * extent,
	}, nil
}

func (s *ResizeSession) Entry() *ImageEntry { return s.entry }

// Update moves the dragged edge to follow the pointer at current. Moves that
// would push the leading edge past the fixed trailing edge are rejected with
// ErrInvalidGeometry and leave the crop untouched.
func (s *ResizeSession) Update(current Point) error {
	if s.done {
		return ErrNoResize
	}
	delta := axis(s.orientation, current.X-s.start.X, current.Y-s.start.Y)

	near, size := s.startNear, s.startSize
	if s.handle.leading() {
		far := s.startNear + s.startSize
		near = max(0, s.startNear+delta)
		if near > far {
			return fmt.Errorf("%w: edge %.1fpx crosses %.1fpx", ErrInvalidGeometry, near, far)
		}
		size = far - near
	} else {
		size = max(0, min(s.extent-s.startNear, s.startSize+delta))
	}

	crop := s.entry.Crop
	crop.Position = near / s.extent * 100
	crop.Size = size / s.extent * 100
	s.entry.Crop = crop.Clamped()
	return nil
}

// End finishes the session. Further updates fail with ErrNoResize.
func (s *ResizeSession) End() {
	s.done = true
}

func axis(o Orientation, x, y float64) float64 {
	if o == Horizontal {
		return x
	}
	return y
}
