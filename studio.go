package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
)

// Studio owns a workspace and its latest composite and runs commands against
// them one at a time, the way a single UI thread would.
type Studio struct {
	mu         sync.Mutex
	ws         *Workspace
	result     *CompositeResult
	generation int
	encode     EncodeOptions
}

func NewStudio(ambient Orientation, encode EncodeOptions) *Studio {
	return &Studio{
		ws:     NewWorkspace(ambient),
		encode: encode,
	}
}

// ignorable reports whether err only means "drop this gesture".
func ignorable(err error) bool {
	return errors.Is(err, ErrUnsupportedMedia) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInvalidGeometry) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrResizeActive) ||
		errors.Is(err, ErrNoResize) ||
		errors.Is(err, ErrUnknownHandle) ||
		errors.Is(err, ErrNoResult)
}

// AddImages decodes sources and appends the decodable ones in order. It
// returns the number of entries added.
func (s *Studio) AddImages(ctx context.Context, sources []Source) (int, error) {
	images, err := decodeAll(ctx, sources)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range images {
		e := s.ws.Add(img.Name, img.Bitmap, OriginUpload)
		log.Ctx(ctx).Debug().Str("id", e.ID).Str("filename", img.Name).Stringer("crop", e.Crop).Msg("image added")
	}
	return len(images), nil
}

// Exec applies one command. Errors that only reject the gesture are logged
// and swallowed so the caller sees an unchanged state.
func (s *Studio) Exec(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, cmd)
	if err != nil && ignorable(err) {
		log.Ctx(ctx).Debug().Err(err).Stringer("command", cmd).Msg("command ignored")
		return nil
	}
	return err
}

func (s *Studio) apply(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandSelect:
		return s.ws.Select(cmd.Select.Index)
	case CommandToggleOrientation:
		return s.ws.ToggleOrientation()
	case CommandDelete:
		if err := s.ws.Delete(cmd.Delete.Index); err != nil {
			return err
		}
		if s.ws.Len() == 0 {
			s.result = nil
		}
		return nil
	case CommandClear:
		s.ws.Clear()
		s.result = nil
		return nil
	case CommandReorder:
		return s.ws.Swap(cmd.Reorder.Source, cmd.Reorder.Target)
	case CommandResizeBegin:
		// A pointer press means any earlier drag is over, even if its
		// resize_end has not arrived yet.
		if stale := s.ws.Resizing(); stale != nil {
			log.Ctx(ctx).Debug().Str("id", stale.Entry().ID).Msg("stale resize ended")
			_ = s.ws.EndResize()
		}
		b := cmd.ResizeBegin
		return s.ws.BeginResize(b.Index, b.Handle, Point{X: b.X, Y: b.Y}, Viewport{Width: b.ViewWidth, Height: b.ViewHeight})
	case CommandResizeMove:
		return s.ws.UpdateResize(Point{X: cmd.ResizeMove.X, Y: cmd.ResizeMove.Y})
	case CommandResizeEnd:
		return s.ws.EndResize()
	case CommandProcess:
		return s.process(ctx)
	case CommandReingest:
		return s.reingest(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd.Type)
}

func (s *Studio) process(ctx context.Context) error {
	result, err := Composite(s.ws.Entries(), s.encode)
	if err != nil {
		return err
	}
	s.result = result
	s.generation++
	log.Ctx(ctx).Info().
		Int("images", len(result.Layout.Blits)).
		Stringer("direction", result.Layout.Direction).
		Int("width", result.Layout.Width).
		Int("height", result.Layout.Height).
		Int("bytes", len(result.Data)).
		Msg("stitched")
	return nil
}

func (s *Studio) reingest(ctx context.Context) error {
	if s.result == nil {
		return ErrNoResult
	}
	e := s.ws.Add(s.result.Filename(), s.result.Bitmap, OriginResult)
	log.Ctx(ctx).Debug().Str("id", e.ID).Msg("result added to workspace")
	return nil
}

// Result returns the latest composite, if any.
func (s *Studio) Result() (*CompositeResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

// Bitmap looks up an entry's source image by id.
func (s *Studio) Bitmap(id string) (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.ws.Entries() {
		if e.ID == id {
			return e.Bitmap, true
		}
	}
	return nil, false
}

type EntryView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Origin   Origin   `json:"origin"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Crop     CropRect `json:"crop"`
	Handles  []Handle `json:"handles"`
	Selected bool     `json:"selected"`
}

type ActionsView struct {
	Process  bool `json:"process"`
	Clear    bool `json:"clear"`
	Toggle   bool `json:"toggle"`
	Download bool `json:"download"`
}

type ResultView struct {
	Generation  int         `json:"generation"`
	Direction   Orientation `json:"direction"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	SizeBytes   int         `json:"size_bytes"`
	ContentType string      `json:"content_type"`
	Filename    string      `json:"filename"`
}

// StateView is everything the front end needs to redraw the workspace.
type StateView struct {
	Entries  []EntryView `json:"entries"`
	Selected int         `json:"selected"`
	Ambient  Orientation `json:"ambient"`
	Resizing bool        `json:"resizing"`
	Actions  ActionsView `json:"actions"`
	Result   *ResultView `json:"result"`
}

func (s *Studio) State() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := StateView{
		Entries:  make([]EntryView, 0, s.ws.Len()),
		Selected: s.ws.Selected(),
		Ambient:  s.ws.Ambient(),
		Resizing: s.ws.Resizing() != nil,
	}
	for i, e := range s.ws.Entries() {
		w, h := e.Size()
		leading, trailing := Handles(e.Crop.Orientation)
		view.Entries = append(view.Entries, EntryView{
			ID:       e.ID,
			Name:     e.Name,
			Origin:   e.Origin,
			Width:    w,
			Height:   h,
			Crop:     e.Crop,
			Handles:  []Handle{leading, trailing},
			Selected: i == s.ws.Selected(),
		})
	}
	view.Actions = ActionsView{
		Process:  s.ws.Len() > 0,
		Clear:    s.ws.Len() > 0,
		Toggle:   s.ws.Selected() != NoSelection,
		Download: s.result != nil,
	}
	if r := s.result; r != nil {
		view.Result = &ResultView{
			Generation:  s.generation,
			Direction:   r.Layout.Direction,
			Width:       r.Layout.Width,
			Height:      r.Layout.Height,
			SizeBytes:   len(r.Data),
			ContentType: r.Options.ContentType(),
			Filename:    r.Filename(),
		}
	}
	return view
}
