package main

import (
	"fmt"
	"math"
	"strings"
)

// Orientation selects the axis a crop strip is cut along.
// Horizontal crops the width, Vertical crops the height.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Flip returns the other orientation.
func (o Orientation) Flip() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}

func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h", "x":
		return Horizontal, nil
	case "vertical", "v", "y", "":
		return Vertical, nil
	}
	return Vertical, fmt.Errorf("unknown orientation %q", s)
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(text []byte) error {
	v, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Extent returns the source dimension the orientation crops: the width for
// Horizontal, the height for Vertical.
func (o Orientation) Extent(width, height int) int {
	if o == Horizontal {
		return width
	}
	return height
}

// CropRect is the kept strip of an image, expressed as percentages of the
// relevant source dimension so it survives resizing of the preview.
type CropRect struct {
	Orientation Orientation `json:"orientation"`
	// Size is the length of the kept strip, 0 to 100.
	Size float64 `json:"size"`
	// Position is the offset of the strip's start, 0 to 100.
	Position float64 `json:"position"`
}

// NewCropRect returns the full-extent crop for a freshly added image.
func NewCropRect(o Orientation) CropRect {
	return CropRect{Orientation: o, Size: 100, Position: 0}
}

func (c CropRect) String() string {
	return fmt.Sprintf("crop(%s,pos=%.2f,size=%.2f)", c.Orientation, c.Position, c.Size)
}

// End is the percentage at which the strip stops.
func (c CropRect) End() float64 {
	return c.Position + c.Size
}

func (c *CropRect) SetSize(size float64) {
	c.Size = clampPercent(size)
}

func (c *CropRect) SetPosition(position float64) {
	c.Position = clampPercent(position)
}

// Toggle flips the orientation. The percentages are reinterpreted against
// the other axis, not rescaled.
func (c *CropRect) Toggle() {
	c.Orientation = c.Orientation.Flip()
}

// Valid reports whether the rect lies within [0,100].
func (c CropRect) Valid() bool {
	return c.Position >= 0 && c.Size >= 0 && c.End() <= 100
}

// Clamped returns c with position and size pulled into [0,100] and the end
// trimmed so that position+size does not exceed 100.
func (c CropRect) Clamped() CropRect {
	c.Position = clampPercent(c.Position)
	c.Size = clampPercent(c.Size)
	if c.End() > 100 {
		c.Size = 100 - c.Position
	}
	return c
}

// Span converts the strip to a pixel interval [start, end) on an axis of the
// given extent. Both edges are rounded independently so a full crop maps
// exactly onto the extent.
func (c CropRect) Span(extent int) (start, end int) {
	c = c.Clamped()
	start = percentToPixels(c.Position, extent)
	end = percentToPixels(c.End(), extent)
	if end < start {
		end = start
	}
	return start, end
}

func percentToPixels(percent float64, extent int) int {
	v := int(math.Round(percent / 100 * float64(extent)))
	return max(0, min(extent, v))
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(100, v))
}
