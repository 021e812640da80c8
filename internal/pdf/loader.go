package pdf

import (
	"bytes"
	"context"
	"image"
	"os"

	"lecnote/internal/logger"
)

// Document is a loaded PDF with one bitmap per page.
type Document struct {
	Info  *PDFInfo
	Pages []image.Image
	// temp is set when the document came from uploaded bytes.
	temp bool
}

// Page returns the bitmap of a 1-based page, or nil if out of range.
func (d *Document) Page(n int) image.Image {
	if d == nil || n < 1 || n > len(d.Pages) {
		return nil
	}
	return d.Pages[n-1]
}

func (d *Document) NumPages() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Close removes the temp copy of an uploaded document.
func (d *Document) Close() error {
	if d == nil || !d.temp {
		return nil
	}
	return os.Remove(d.Info.FilePath)
}

// Loader opens documents and rasterizes them.
type Loader struct {
	rasterizer *Rasterizer
}

func NewLoader(rasterizer *Rasterizer) *Loader {
	return &Loader{rasterizer: rasterizer}
}

// Load opens pdfPath and rasterizes every page.
func (l *Loader) Load(ctx context.Context, pdfPath string) (*Document, error) {
	pages, err := l.rasterizer.RasterizeAll(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	info, err := l.rasterizer.parser.GetPDFInfo(pdfPath)
	if err != nil {
		return nil, err
	}
	return &Document{Info: info, Pages: pages}, nil
}

var pdfMagic = []byte("%PDF-")

// LoadFromBytes loads an uploaded file. Empty input means nothing was
// selected and yields (nil, nil).
func (l *Loader) LoadFromBytes(ctx context.Context, name string, data []byte) (*Document, error) {
	if len(data) == 0 {
		logger.Debug("no file selected, ignoring")
		return nil, nil
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, NewPDFErrorWithDetails(ErrPDFInvalid, "not a PDF file", name, nil)
	}

	f, err := os.CreateTemp("", "lecnote_upload_*.pdf")
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "failed to store upload", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, NewPDFError(ErrPDFInvalid, "failed to store upload", err)
	}
	f.Close()

	doc, err := l.Load(ctx, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	doc.temp = true
	if name != "" {
		doc.Info.FileName = name
	}
	return doc, nil
}
