package main

import (
	"fmt"
	"image"

	"github.com/google/uuid"
)

// Origin records where an entry came from. It is carried for provenance only.
type Origin string

const (
	OriginUpload Origin = "upload"
	OriginResult Origin = "result"
)

// NoSelection is the selected index of a workspace with nothing selected.
const NoSelection = -1

type ImageEntry struct {
	ID     string
	Name   string
	Origin Origin
	Bitmap image.Image
	Crop   CropRect
}

// NewImageEntry wraps a decoded bitmap with a full-extent crop.
func NewImageEntry(name string, bitmap image.Image, origin Origin, o Orientation) *ImageEntry {
	return &ImageEntry{
		ID:     uuid.NewString(),
		Name:   name,
		Origin: origin,
		Bitmap: bitmap,
		Crop:   NewCropRect(o),
	}
}

// Size returns the natural pixel dimensions of the source bitmap.
func (e *ImageEntry) Size() (width, height int) {
	b := e.Bitmap.Bounds()
	return b.Dx(), b.Dy()
}

// Workspace is the ordered list of entries being stitched together with the
// current selection and the orientation applied to new entries.
// It is not safe for concurrent use.
type Workspace struct {
	entries  []*ImageEntry
	selected int
	ambient  Orientation
	resize   *ResizeSession
}

func NewWorkspace(ambient Orientation) *Workspace {
	return &Workspace{selected: NoSelection, ambient: ambient}
}

func (w *Workspace) Len() int { return len(w.entries) }

// Entries returns a copy of the ordered entry list.
func (w *Workspace) Entries() []*ImageEntry {
	return append([]*ImageEntry(nil), w.entries...)
}

func (w *Workspace) Entry(i int) (*ImageEntry, error) {
	if !w.valid(i) {
		return nil, fmt.Errorf("%w: entry %d of %d", ErrIndexOutOfRange, i, len(w.entries))
	}
	return w.entries[i], nil
}

func (w *Workspace) Selected() int { return w.selected }
func (w *Workspace) Ambient() Orientation { return w.ambient }
func (w *Workspace) Resizing() *ResizeSession { return w.resize }
func (w *Workspace) valid(i int) bool { return i >= 0 && i < len(w.entries) }

// Add appends a decoded bitmap as a new entry at the ambient orientation and
// selects it.
func (w *Workspace) Add(name string, bitmap image.Image, origin Origin) *ImageEntry {
	e := NewImageEntry(name, bitmap, origin, w.ambient)
	w.entries = append(w.entries, e)
	w.selected = len(w.entries) - 1
	return e
}

// Select makes entry i the active one and mirrors its orientation into the
// ambient default.
func (w *Workspace) Select(i int) error {
	if !w.valid(i) {
		return fmt.Errorf("%w: select %d", ErrIndexOutOfRange, i)
	}
	w.selected = i
	w.ambient = w.entries[i].Crop.Orientation
	return nil
}

// ToggleOrientation flips the selected entry between horizontal and vertical
// cropping. The ambient orientation follows.
func (w *Workspace) ToggleOrientation() error {
	if !w.valid(w.selected) {
		return fmt.Errorf("%w: nothing selected", ErrIndexOutOfRange)
	}
	e := w.entries[w.selected]
	e.Crop.Toggle()
	w.ambient = e.Crop.Orientation
	return nil
}

// Swap exchanges the entries at a and b. A selection on either index follows
// the entry that moved.
func (w *Workspace) Swap(a, b int) error {
	if !w.valid(a) || !w.valid(b) {
		return fmt.Errorf("%w: swap %d and %d of %d", ErrIndexOutOfRange, a, b, len(w.entries))
	}
	if a == b {
		return nil
	}
	w.entries[a], w.entries[b] = w.entries[b], w.entries[a]
	switch w.selected {
	case a:
		w.selected = b
	case b:
		w.selected = a
	}
	return nil
}

// Delete removes entry i. Selection moves to the previous entry, or to the
// first one when i was 0.
func (w *Workspace) Delete(i int) error {
	if !w.valid(i) {
		return fmt.Errorf("%w: delete %d", ErrIndexOutOfRange, i)
	}
	if w.resize != nil && w.resize.Entry() == w.entries[i] {
		w.resize = nil
	}
	w.entries = append(w.entries[:i], w.entries[i+1:]...)
	if len(w.entries) == 0 {
		w.selected = NoSelection
		return nil
	}
	return w.Select(max(0, i-1))
}

func (w *Workspace) Clear() {
	w.entries = nil
	w.selected = NoSelection
	w.resize = nil
}

// BeginResize starts a handle drag on entry i, selecting it first. Only one
// drag may be active at a time.
func (w *Workspace) BeginResize(i int, handle Handle, start Point, view Viewport) error {
	if w.resize != nil {
		return ErrResizeActive
	}
	if !w.valid(i) {
		return fmt.Errorf("%w: resize %d", ErrIndexOutOfRange, i)
	}
	if w.selected != i {
		if err := w.Select(i); err != nil {
			return err
		}
	}
	s, err := BeginResize(w.entries[i], handle, start, view)
	if err != nil {
		return err
	}
	w.resize = s
	return nil
}

func (w *Workspace) UpdateResize(current Point) error {
	if w.resize == nil {
		return ErrNoResize
	}
	return w.resize.Update(current)
}

func (w *Workspace) EndResize() error {
	if w.resize == nil {
		return ErrNoResize
	}
	w.resize.End()
	w.resize = nil
	return nil
}
