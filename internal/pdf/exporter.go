package pdf

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fogleman/gg"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"lecnote/internal/logger"
)

// overlayDesc stretches a page overlay over the whole page, on top of the content.
const overlayDesc = "position:c, scalefactor:1 rel, rotation:0, opacity:1"

// Exporter writes a copy of a PDF with annotation overlays stamped on it.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// ExportAnnotated stamps overlays (keyed by 1-based page) onto src and
// writes the result to dst. Pages without an overlay are copied unchanged.
func (e *Exporter) ExportAnnotated(ctx context.Context, src, dst string, overlays map[int]image.Image) error {
	if _, err := statPDF(src); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return NewPDFError(ErrExportFailed, "failed to create output directory", err)
	}

	if len(overlays) == 0 {
		logger.Info("no annotations, copying PDF unchanged", logger.String("output", filepath.Base(dst)))
		return copyFile(src, dst)
	}

	tempDir, err := os.MkdirTemp("", "lecnote_export_*")
	if err != nil {
		return NewPDFError(ErrExportFailed, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	pages := make([]int, 0, len(overlays))
	for page := range overlays {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	watermarks := make(map[int]*model.Watermark, len(overlays))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return NewPDFError(ErrExportFailed, "export cancelled", err)
		}
		imgPath := filepath.Join(tempDir, fmt.Sprintf("overlay_%d.png", page))
		if err := gg.SavePNG(imgPath, overlays[page]); err != nil {
			return NewPDFErrorWithPage(ErrExportFailed, "failed to write overlay image", page, err)
		}
		wm, err := api.ImageWatermark(imgPath, overlayDesc, true, false, 0)
		if err != nil {
			return NewPDFErrorWithPage(ErrExportFailed, "failed to create overlay", page, err)
		}
		watermarks[page] = wm
	}

	logger.Info("exporting annotated PDF",
		logger.String("input", filepath.Base(src)),
		logger.String("output", filepath.Base(dst)),
		logger.Int("annotatedPages", len(watermarks)))

	if err := api.AddWatermarksMapFile(src, dst, watermarks, nil); err != nil {
		return NewPDFError(ErrExportFailed, "failed to stamp overlays", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return NewPDFError(ErrExportFailed, "failed to open source", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return NewPDFError(ErrExportFailed, "failed to create output", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return NewPDFError(ErrExportFailed, "failed to copy PDF", err)
	}
	if err := out.Close(); err != nil {
		return NewPDFError(ErrExportFailed, "failed to write output", err)
	}
	return nil
}
