package annotation

import (
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	// TextSize is the font size of text elements in pixels.
	TextSize = 16.0
	// TextHeight is the fixed hit box height of a text element.
	TextHeight = 20.0
	// lineTolerance bounds the sum-of-distances test for lines. The slack
	// grows with line length, so the band around long lines stays usable.
	lineTolerance = 0.05
)

// Measurer returns the rendered width of a string.
type Measurer interface {
	Measure(text string) float64
}

// FontMeasurer measures with a real font face.
type FontMeasurer struct {
	mu   sync.Mutex
	face font.Face
}

// NewFontMeasurer loads Go Regular at TextSize.
func NewFontMeasurer() (*FontMeasurer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: TextSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	return &FontMeasurer{face: face}, nil
}

func (m *FontMeasurer) Measure(text string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(font.MeasureString(m.face, text).Ceil())
}

// fixedMeasurer assumes every rune has the same advance. Used when the font
// cannot be loaded.
type fixedMeasurer float64

func (f fixedMeasurer) Measure(text string) float64 {
	return float64(len([]rune(text))) * float64(f)
}

var (
	defaultMeasurerOnce sync.Once
	defaultMeasurer     Measurer
)

// DefaultMeasurer returns a shared FontMeasurer, or a fixed-advance
// fallback if the embedded font fails to parse.
func DefaultMeasurer() Measurer {
	defaultMeasurerOnce.Do(func() {
		m, err := NewFontMeasurer()
		if err != nil {
			defaultMeasurer = fixedMeasurer(TextSize / 2)
			return
		}
		defaultMeasurer = m
	})
	return defaultMeasurer
}

// Hit reports whether (x, y) falls on e.
func Hit(e Element, x, y float64, m Measurer) bool {
	switch e.Kind {
	case KindRectangle:
		minX, minY, maxX, maxY := e.Bounds()
		return x >= minX && x <= maxX && y >= minY && y <= maxY
	case KindLine:
		a, b, p := Point{e.X1, e.Y1}, Point{e.X2, e.Y2}, Point{x, y}
		offset := dist(a, b) - (dist(a, p) + dist(b, p))
		return math.Abs(offset) < lineTolerance
	case KindText:
		w := m.Measure(e.Text)
		return x >= e.X1 && x <= e.X1+w && y >= e.Y1 && y <= e.Y1+TextHeight
	default:
		return false
	}
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ElementAt returns the index of the topmost element under (x, y), or -1.
func ElementAt(elements []Element, x, y float64, m Measurer) int {
	for i := len(elements) - 1; i >= 0; i-- {
		if Hit(elements[i], x, y, m) {
			return i
		}
	}
	return -1
}
