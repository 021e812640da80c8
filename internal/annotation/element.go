// Package annotation holds the per-page drawing state of the canvas: the
// element lists, the active tool and the in-progress pointer action. All
// updates are pure functions on State; Store serializes them for callers
// that share one canvas across goroutines.
package annotation

import (
	"fmt"
	"math"
)

// Kind tags which variant an Element is.
type Kind int

const (
	KindLine Kind = iota
	KindRectangle
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindRectangle:
		return "rectangle"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Point is a canvas coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is one drawable on a page. Shapes carry a Sketch; text carries Text.
type Element struct {
	ID     int     `json:"id"`
	Kind   Kind    `json:"kind"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Sketch Sketch  `json:"sketch,omitempty"`
	Text   string  `json:"text,omitempty"`
}

// Width and Height are signed; a shape drawn right-to-left has negative width.
func (e Element) Width() float64  { return e.X2 - e.X1 }
func (e Element) Height() float64 { return e.Y2 - e.Y1 }

// Bounds returns the normalized bounding box.
func (e Element) Bounds() (minX, minY, maxX, maxY float64) {
	return math.Min(e.X1, e.X2), math.Min(e.Y1, e.Y2), math.Max(e.X1, e.X2), math.Max(e.Y1, e.Y2)
}

func newShape(id int, kind Kind, x1, y1, x2, y2 float64) Element {
	e := Element{ID: id, Kind: kind, X1: x1, Y1: y1, X2: x2, Y2: y2}
	e.Sketch = BuildSketch(e)
	return e
}

func newText(id int, text string, x, y float64, m Measurer) Element {
	return Element{
		ID:   id,
		Kind: KindText,
		X1:   x,
		Y1:   y,
		X2:   x + m.Measure(text),
		Y2:   y + TextHeight,
		Text: text,
	}
}

// withCorner returns e with its second corner moved to (x, y).
func (e Element) withCorner(x, y float64) Element {
	e.X2, e.Y2 = x, y
	if e.Kind != KindText {
		e.Sketch = BuildSketch(e)
	}
	return e
}

// movedTo returns e with its first corner at (x, y) and its size unchanged.
func (e Element) movedTo(x, y float64) Element {
	w, h := e.Width(), e.Height()
	e.X1, e.Y1 = x, y
	e.X2, e.Y2 = x+w, y+h
	if e.Kind != KindText {
		e.Sketch = BuildSketch(e)
	}
	return e
}

func (e Element) withText(text string, m Measurer) Element {
	e.Text = text
	e.X2 = e.X1 + m.Measure(text)
	e.Y2 = e.Y1 + TextHeight
	return e
}
