package pdf

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"lecnote/internal/logger"
)

// DefaultDPI renders at scale 1.5 of the 72 dpi PDF user space.
const DefaultDPI = 108

// Rasterizer renders PDF pages to bitmaps with poppler's pdftoppm.
type Rasterizer struct {
	dpi    int
	binary string
	parser *Parser
}

func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: dpi, binary: "pdftoppm", parser: NewParser()}
}

// Available reports whether pdftoppm can be run.
func (r *Rasterizer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

func (r *Rasterizer) DPI() int { return r.dpi }

// Scale is the ratio between raster pixels and PDF points.
func (r *Rasterizer) Scale() float64 { return float64(r.dpi) / 72 }

// RasterizeAll renders every page in order. Any failed page fails the whole
// call so the caller can keep showing the previous document.
func (r *Rasterizer) RasterizeAll(ctx context.Context, pdfPath string) ([]image.Image, error) {
	info, err := r.parser.GetPDFInfo(pdfPath)
	if err != nil {
		return nil, err
	}
	if !r.Available() {
		return nil, NewPDFErrorWithDetails(ErrRasterMissing, "pdftoppm not found",
			"install poppler-utils (apt-get install poppler-utils, brew install poppler)", nil)
	}

	tempDir, err := os.MkdirTemp("", "lecnote_raster_*")
	if err != nil {
		return nil, NewPDFError(ErrRasterFailed, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	pages := make([]image.Image, 0, info.PageCount)
	for pageNum := 1; pageNum <= info.PageCount; pageNum++ {
		img, err := r.rasterizePage(ctx, pdfPath, pageNum, tempDir)
		if err != nil {
			logger.Error("page rasterization failed", err,
				logger.String("pdf", filepath.Base(pdfPath)), logger.Int("page", pageNum))
			return nil, err
		}
		pages = append(pages, img)
	}

	logger.Info("PDF rasterized",
		logger.String("pdf", filepath.Base(pdfPath)),
		logger.Int("pages", len(pages)),
		logger.Int("dpi", r.dpi))
	return pages, nil
}

// RasterizePage renders a single page.
func (r *Rasterizer) RasterizePage(ctx context.Context, pdfPath string, pageNum int) (image.Image, error) {
	tempDir, err := os.MkdirTemp("", "lecnote_raster_*")
	if err != nil {
		return nil, NewPDFError(ErrRasterFailed, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)
	return r.rasterizePage(ctx, pdfPath, pageNum, tempDir)
}

func (r *Rasterizer) rasterizePage(ctx context.Context, pdfPath string, pageNum int, tempDir string) (image.Image, error) {
	outputPrefix := filepath.Join(tempDir, fmt.Sprintf("page_%d", pageNum))
	args := []string{
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	hideWindowOnWindows(cmd)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrRasterFailed,
			fmt.Sprintf("pdftoppm failed: %s", string(output)), pageNum, err)
	}

	imgPath := outputPrefix + ".png"
	img, err := loadImage(imgPath)
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrRasterFailed, "failed to load rendered page", pageNum, err)
	}
	os.Remove(imgPath)

	logger.Debug("page rasterized",
		logger.Int("page", pageNum),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()))
	return img, nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
