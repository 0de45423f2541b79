package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// Blit copies the Src rectangle of entry Index onto the Dst rectangle of the
// output canvas. Both rectangles have the same size; nothing is scaled.
type Blit struct {
	Index int             `json:"index"`
	Name  string          `json:"name"`
	Src   image.Rectangle `json:"src"`
	Dst   image.Rectangle `json:"dst"`
}

// Layout is the output canvas geometry for one stitch.
type Layout struct {
	Direction Orientation `json:"direction"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Blits     []Blit      `json:"blits"`
}

// Plan computes where every entry's crop strip lands on the output canvas.
//
// The stitch direction is the first entry's orientation; the orientation
// stored on the other entries is ignored. Strips are placed back to back
// along the stitch axis and aligned to offset 0 on the other one, so the
// canvas is as long as the sum of the strips and as wide as the widest
// source image. A canvas with no area is reported as ErrEmptyInput.
func Plan(entries []*ImageEntry) (Layout, error) {
	if len(entries) == 0 {
		return Layout{}, ErrEmptyInput
	}

	layout := Layout{Direction: entries[0].Crop.Orientation}
	cursor := 0
	for i, e := range entries {
		b := e.Bitmap.Bounds()
		var src, dst image.Rectangle
		if layout.Direction == Horizontal {
			x0, x1 := e.Crop.Span(b.Dx())
			src = image.Rect(b.Min.X+x0, b.Min.Y, b.Min.X+x1, b.Max.Y)
			dst = image.Rect(cursor, 0, cursor+src.Dx(), src.Dy())
			cursor += src.Dx()
			layout.Width = cursor
			layout.Height = max(layout.Height, b.Dy())
		} else {
			y0, y1 := e.Crop.Span(b.Dy())
			src = image.Rect(b.Min.X, b.Min.Y+y0, b.Max.X, b.Min.Y+y1)
			dst = image.Rect(0, cursor, src.Dx(), cursor+src.Dy())
			cursor += src.Dy()
			layout.Height = cursor
			layout.Width = max(layout.Width, b.Dx())
		}
		layout.Blits = append(layout.Blits, Blit{Index: i, Name: e.Name, Src: src, Dst: dst})
	}
	if layout.Width == 0 || layout.Height == 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d canvas", ErrEmptyInput, layout.Width, layout.Height)
	}
	return layout, nil
}

// Render draws a layout onto a fresh transparent canvas.
func Render(layout Layout, entries []*ImageEntry) (*image.NRGBA, error) {
	canvas := imaging.New(layout.Width, layout.Height, color.Transparent)
	for _, blit := range layout.Blits {
		if blit.Index < 0 || blit.Index >= len(entries) {
			return nil, fmt.Errorf("%w: blit source %d", ErrIndexOutOfRange, blit.Index)
		}
		if blit.Src.Empty() {
			continue
		}
		draw.Draw(canvas, blit.Dst, entries[blit.Index].Bitmap, blit.Src.Min, draw.Src)
	}
	return canvas, nil
}

// EncodeOptions selects the output format of a composite.
type EncodeOptions struct {
	Format  imaging.Format
	Quality int
}

// DefaultEncodeOptions matches what a browser canvas produces for
// toDataURL("image/jpeg", 0.92).
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{Format: imaging.JPEG, Quality: 92}
}

// ParseFormat accepts "jpeg", "jpg" or "png", with or without a leading dot.
func ParseFormat(s string) (imaging.Format, error) {
	ext := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, err
	}
	if f != imaging.JPEG && f != imaging.PNG {
		return 0, fmt.Errorf("unsupported output format %q", s)
	}
	return f, nil
}

func (o EncodeOptions) Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, o.Format, imaging.JPEGQuality(o.Quality))
}

func (o EncodeOptions) ContentType() string {
	if o.Format == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

func (o EncodeOptions) Extension() string {
	if o.Format == imaging.PNG {
		return ".png"
	}
	return ".jpg"
}

// CompositeResult is the output of one stitch. It is rebuilt from scratch on
// every run.
type CompositeResult struct {
	Layout  Layout
	Bitmap  *image.NRGBA
	Data    []byte
	Options EncodeOptions
}

func (r *CompositeResult) Filename() string {
	return "stitch-result" + r.Options.Extension()
}

// Composite plans, renders and encodes the stitched image for entries.
func Composite(entries []*ImageEntry, opts EncodeOptions) (*CompositeResult, error) {
	layout, err := Plan(entries)
	if err != nil {
		return nil, err
	}
	bitmap, err := Render(layout, entries)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := opts.Encode(&b, bitmap); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	return &CompositeResult{
		Layout:  layout,
		Bitmap:  bitmap,
		Data:    b.Bytes(),
		Options: opts,
	}, nil
}
