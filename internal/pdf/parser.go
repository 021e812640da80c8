package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"lecnote/internal/logger"
)

// Parser reads document metadata and text.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func statPDF(pdfPath string) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}
	if fileInfo.IsDir() {
		return nil, NewPDFErrorWithDetails(ErrPDFInvalid, "path is a directory", pdfPath, nil)
	}
	return fileInfo, nil
}

// GetPDFInfo returns page count and size. The page count comes from
// ledongthuc/pdf, with pdfcpu as a fallback for files it cannot open.
func (p *Parser) GetPDFInfo(pdfPath string) (*PDFInfo, error) {
	fileInfo, err := statPDF(pdfPath)
	if err != nil {
		return nil, err
	}

	pageCount, err := p.pageCount(pdfPath)
	if err != nil {
		return nil, err
	}

	isText, err := p.IsTextPDF(pdfPath)
	if err != nil {
		isText = false
	}

	return &PDFInfo{
		FilePath:  pdfPath,
		FileName:  filepath.Base(pdfPath),
		PageCount: pageCount,
		FileSize:  fileInfo.Size(),
		IsTextPDF: isText,
	}, nil
}

func (p *Parser) pageCount(pdfPath string) (int, error) {
	f, r, err := pdf.Open(pdfPath)
	if err == nil {
		defer f.Close()
		if n := r.NumPage(); n > 0 {
			return n, nil
		}
	}

	logger.Debug("falling back to pdfcpu for page count",
		logger.String("pdf", filepath.Base(pdfPath)), logger.Err(err))
	ctx, cpuErr := api.ReadContextFile(pdfPath)
	if cpuErr != nil {
		if strings.Contains(strings.ToLower(cpuErr.Error()), "encrypt") {
			return 0, NewPDFError(ErrPDFEncrypted, "PDF is encrypted", cpuErr)
		}
		return 0, NewPDFError(ErrPDFInvalid, "cannot open PDF file", cpuErr)
	}
	if ctx.PageCount <= 0 {
		return 0, NewPDFError(ErrPDFInvalid, "PDF has no pages", nil)
	}
	return ctx.PageCount, nil
}

// IsTextPDF reports whether the first pages carry extractable text.
func (p *Parser) IsTextPDF(pdfPath string) (bool, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return false, NewPDFError(ErrPDFInvalid, "cannot open PDF file", err)
	}
	defer f.Close()

	maxPages := 3
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	total := 0
	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, c := range content {
			if !unicode.IsSpace(c) {
				total++
			}
		}
	}
	return total > 0, nil
}
