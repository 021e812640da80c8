// Package render paints annotation elements over a rasterized page.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"lecnote/internal/annotation"
	"lecnote/internal/logger"
	"lecnote/internal/types"
)

var (
	strokeColor = color.Black
	textColor   = color.RGBA{R: 0x1a, G: 0x1a, B: 0x8c, A: 0xff}
)

const strokeWidth = 1.5

// Renderer draws elements with gg. A Renderer is safe for concurrent use.
type Renderer struct {
	mu   sync.Mutex
	face font.Face
}

// NewRenderer loads Go Regular at the annotation text size.
func NewRenderer() (*Renderer, error) {
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, types.NewAppError(types.ErrRender, "failed to parse font", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    annotation.TextSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Renderer{face: face}, nil
}

// Render clears the canvas, draws background and then every element in order.
func (r *Renderer) Render(background image.Image, elements []annotation.Element) (img image.Image, err error) {
	if background == nil {
		return nil, types.NewAppError(types.ErrRender, "no page image to draw on", nil)
	}
	b := background.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(background, -b.Min.X, -b.Min.Y)

	if err := r.drawElements(dc, elements); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// RenderOverlay draws elements on a transparent canvas of the given size.
func (r *Renderer) RenderOverlay(width, height int, elements []annotation.Element) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrRender, "invalid overlay size",
			fmt.Sprintf("%dx%d", width, height), nil)
	}
	dc := gg.NewContext(width, height)
	if err := r.drawElements(dc, elements); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

func (r *Renderer) drawElements(dc *gg.Context, elements []annotation.Element) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = types.NewAppErrorWithDetails(types.ErrRender, "drawing failed", fmt.Sprint(p), nil)
		}
	}()

	dc.SetFontFace(r.face)
	for _, e := range elements {
		switch e.Kind {
		case annotation.KindLine, annotation.KindRectangle:
			drawSketch(dc, e.Sketch)
		case annotation.KindText:
			dc.SetColor(textColor)
			// anchor the top-left corner of the text at (x1, y1)
			dc.DrawStringAnchored(e.Text, e.X1, e.Y1, 0, 1)
		default:
			return types.NewAppErrorWithDetails(types.ErrRender, "unknown element kind", e.Kind.String(), nil)
		}
	}
	return nil
}

func drawSketch(dc *gg.Context, sketch annotation.Sketch) {
	dc.SetColor(strokeColor)
	dc.SetLineWidth(strokeWidth)
	for _, s := range sketch {
		dc.MoveTo(s[0].X, s[0].Y)
		dc.CubicTo(s[1].X, s[1].Y, s[2].X, s[2].Y, s[3].X, s[3].Y)
		dc.Stroke()
	}
}

// Frame keeps the most recent successful render. A failed render is logged
// and the previous frame stays current.
type Frame struct {
	mu       sync.Mutex
	renderer *Renderer
	current  image.Image
	log      logger.Logger
}

func NewFrame(renderer *Renderer) *Frame {
	return &Frame{renderer: renderer, log: logger.With(logger.Component("render"))}
}

// Update re-renders and returns the current frame. It never fails; the
// result is nil only if no render has ever succeeded.
func (f *Frame) Update(background image.Image, elements []annotation.Element) image.Image {
	img, err := f.renderer.Render(background, elements)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.log.Error("render failed, keeping previous frame", err, logger.Int("elements", len(elements)))
		return f.current
	}
	f.current = img
	return img
}

func (f *Frame) Current() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Reset drops the current frame, used when a new document is opened.
func (f *Frame) Reset() {
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
}

// EncodePNGDataURL encodes img as a data: URL the web view can display.
func EncodePNGDataURL(img image.Image) (string, error) {
	if img == nil {
		return "", types.NewAppError(types.ErrRender, "no frame to encode", nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", types.NewAppError(types.ErrRender, "failed to encode frame", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
