package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/goregular"

	"lecnote/internal/logger"
	"lecnote/internal/transcript"
)

const (
	notesFont       = "notes"
	notesFontSize   = 12
	notesLineHeight = 6
	notesMargin     = 15
)

// NotesExporter writes transcript lines and their translations to a PDF.
type NotesExporter struct {
	fontPath string
	now      func() time.Time
}

// NewNotesExporter uses the TTF at fontPath, or Go Regular when empty.
// Go Regular has no Hangul glyphs, so Korean notes need a CJK font.
func NewNotesExporter(fontPath string) *NotesExporter {
	return &NotesExporter{fontPath: fontPath, now: time.Now}
}

func (n *NotesExporter) fontBytes() ([]byte, error) {
	if n.fontPath == "" {
		return goregular.TTF, nil
	}
	data, err := os.ReadFile(n.fontPath)
	if err != nil {
		return nil, NewPDFErrorWithDetails(ErrExportFailed, "cannot read notes font", n.fontPath, err)
	}
	return data, nil
}

// Export writes one block per line: the original text, then the
// translation in grey when there is one.
func (n *NotesExporter) Export(dst string, lines []transcript.Line) error {
	count := 0
	for _, l := range lines {
		if strings.TrimSpace(l.Text) != "" {
			count++
		}
	}
	if count == 0 {
		return NewPDFError(ErrNothingToWrite, "no transcript lines to export", nil)
	}

	font, err := n.fontBytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return NewPDFError(ErrExportFailed, "failed to create output directory", err)
	}

	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(notesMargin, notesMargin, notesMargin)
	p.SetAutoPageBreak(true, notesMargin)
	p.AddUTF8FontFromBytes(notesFont, "", font)
	p.SetTitle("Lecture notes", true)
	p.SetCreator("lecnote", true)
	p.AddPage()

	p.SetFont(notesFont, "", notesFontSize+4)
	p.CellFormat(0, notesLineHeight*2, "Lecture notes", "", 1, "L", false, 0, "")
	p.SetFont(notesFont, "", notesFontSize-2)
	p.SetTextColor(120, 120, 120)
	p.CellFormat(0, notesLineHeight, n.now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	p.Ln(notesLineHeight)

	for _, l := range lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		p.SetFont(notesFont, "", notesFontSize)
		p.SetTextColor(0, 0, 0)
		p.MultiCell(0, notesLineHeight, text, "", "L", false)
		if tr := strings.TrimSpace(l.Translated); tr != "" {
			p.SetTextColor(90, 90, 90)
			p.MultiCell(0, notesLineHeight, tr, "", "L", false)
		}
		p.Ln(notesLineHeight / 2)
	}

	if err := p.OutputFileAndClose(dst); err != nil {
		return NewPDFError(ErrExportFailed, "failed to write notes PDF", err)
	}
	logger.Info("notes exported", logger.String("output", filepath.Base(dst)), logger.Int("lines", count))
	return nil
}
