package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"lecnote/internal/annotation"
	"lecnote/internal/pdf"
	"lecnote/internal/translate"
	"lecnote/internal/types"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewAppWithConfig(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewAppWithConfig() returned error: %v", err)
	}
	app.startup(context.Background())
	return app
}

// createMockRelay answers POST /translate with "tr:" + text.
func createMockRelay(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req translate.TranslateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(translate.TranslateResponse{TranslatedText: "tr:" + req.Text})
	}))
	t.Cleanup(server.Close)
	return server
}

// loadTestDocument installs a one-page document without rasterizing.
func loadTestDocument(t *testing.T, app *App) {
	t.Helper()
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	path := filepath.Join(t.TempDir(), "slides.pdf")
	if err := p.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}

	page := image.NewRGBA(image.Rect(0, 0, 120, 170))
	for i := range page.Pix {
		page.Pix[i] = 255
	}
	app.setDocument(&pdf.Document{
		Info:  &pdf.PDFInfo{FilePath: path, FileName: "slides.pdf", PageCount: 1},
		Pages: []image.Image{page},
	})
}

func codeOf(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	return types.CodeOf(err)
}

func TestNewAppWithConfig(t *testing.T) {
	app := newTestApp(t)

	if app.config == nil || app.store == nil || app.session == nil || app.relay == nil {
		t.Fatal("App modules should be initialized")
	}
	if app.relay.BaseURL() != "http://localhost:5000" {
		t.Errorf("Expected default relay URL, got %s", app.relay.BaseURL())
	}
	if app.GetLines().Language != "ko-KR" {
		t.Errorf("Expected ko-KR recognition, got %s", app.GetLines().Language)
	}
}

func TestResolveRelayURL(t *testing.T) {
	found := func() ([]string, error) { return []string{"192.168.0.7:5000", "192.168.0.8:5000"}, nil }
	none := func() ([]string, error) { return nil, nil }
	failing := func() ([]string, error) { return nil, errors.New("no multicast") }

	tests := []struct {
		configured string
		discover   func() ([]string, error)
		want       string
	}{
		{"http://10.0.0.2:5000", failing, "http://10.0.0.2:5000"},
		{"auto", found, "http://192.168.0.7:5000"},
		{"AUTO", none, "http://localhost:5000"},
		{"auto", failing, "http://localhost:5000"},
	}
	for _, tt := range tests {
		if got := resolveRelayURL(tt.configured, tt.discover); got != tt.want {
			t.Errorf("resolveRelayURL(%q) = %q, want %q", tt.configured, got, tt.want)
		}
	}
}

func TestCanvasDrawAndMove(t *testing.T) {
	app := newTestApp(t)

	if err := app.SetTool("rectangle"); err != nil {
		t.Fatalf("SetTool failed: %v", err)
	}
	app.PointerDown(10, 10)
	app.PointerMove(50, 50)
	app.PointerUp()

	elements := app.GetCanvasState().Elements()
	if len(elements) != 1 || elements[0].Kind != annotation.KindRectangle {
		t.Fatalf("Expected one rectangle, got %+v", elements)
	}

	if err := app.SetTool("selection"); err != nil {
		t.Fatalf("SetTool failed: %v", err)
	}
	if cursor := app.PointerMove(30, 30); cursor != "move" {
		t.Errorf("Expected move cursor over element, got %s", cursor)
	}
	app.PointerDown(30, 30)
	app.PointerMove(130, 30)
	app.PointerUp()

	moved := app.GetCanvasState().Elements()[0]
	if moved.X1 != 110 || moved.Width() != 40 || moved.Height() != 40 {
		t.Errorf("Unexpected geometry after move: %+v", moved)
	}
}

func TestSetToolRejectsUnknown(t *testing.T) {
	app := newTestApp(t)
	if code := codeOf(t, app.SetTool("spray")); code != types.ErrInvalidInput {
		t.Errorf("Expected %s, got %s", types.ErrInvalidInput, code)
	}
	if app.GetCanvasState().Tool != annotation.ToolLine {
		t.Error("Tool should be unchanged after a rejected change")
	}
}

func TestTranscriptFlow(t *testing.T) {
	app := newTestApp(t)

	listening, err := app.ToggleListening()
	if err != nil || !listening {
		t.Fatalf("Expected listening, got %v (%v)", listening, err)
	}

	lines := app.UpdateTranscript("오늘 수업을 시작합니다 먼저")
	if len(lines) != 1 || lines[0].Text != "오늘 수업을 시작합니다" {
		t.Fatalf("Unexpected lines %+v", lines)
	}
	if app.GetLines().Pending != "먼저" {
		t.Errorf("Expected pending fragment, got %q", app.GetLines().Pending)
	}

	listening, err = app.ToggleListening()
	if err != nil || listening {
		t.Fatalf("Expected stopped, got %v (%v)", listening, err)
	}
	if got := len(app.GetLines().Lines); got != 2 {
		t.Errorf("Expected pending fragment flushed as a line, got %d lines", got)
	}

	if err := app.EditLine(1, "먼저 복습"); err != nil {
		t.Fatalf("EditLine failed: %v", err)
	}
	if err := app.MoveBubble(1, 200, 40); err != nil {
		t.Fatalf("MoveBubble failed: %v", err)
	}
	snap := app.GetLines()
	if snap.Lines[1].Text != "먼저 복습" || snap.Lines[1].Bubble.X != 200 {
		t.Errorf("Unexpected line %+v", snap.Lines[1])
	}

	if code := codeOf(t, app.EditLine(9, "x")); code != types.ErrNotFound {
		t.Errorf("Expected %s, got %s", types.ErrNotFound, code)
	}
}

func TestSetRecognitionLanguage(t *testing.T) {
	app := newTestApp(t)

	if err := app.SetRecognitionLanguage("en-US"); err != nil {
		t.Fatalf("SetRecognitionLanguage failed: %v", err)
	}
	if app.GetLines().Language != "en-US" {
		t.Errorf("Expected en-US, got %s", app.GetLines().Language)
	}
	if app.config.GetConfig().RecognitionLanguage != "en-US" {
		t.Error("Expected language to be persisted in config")
	}
}

func TestTranslateLine(t *testing.T) {
	app := newTestApp(t)
	app.relay = translate.NewRelayClient(createMockRelay(t).URL)

	app.ToggleListening()
	app.UpdateTranscript("감사합니다 다음")

	if err := app.TranslateLine(0); err != nil {
		t.Fatalf("TranslateLine failed: %v", err)
	}
	app.translations.Wait()

	line := app.GetLines().Lines[0]
	if line.Translated != "tr:감사합니다" {
		t.Errorf("Expected translation, got %q", line.Translated)
	}

	if code := codeOf(t, app.TranslateLine(5)); code != types.ErrNotFound {
		t.Errorf("Expected %s, got %s", types.ErrNotFound, code)
	}
}

func TestTranslateLineRelayDown(t *testing.T) {
	app := newTestApp(t)
	server := createMockRelay(t)
	app.relay = translate.NewRelayClient(server.URL)
	server.Close()

	app.ToggleListening()
	app.UpdateTranscript("감사합니다")
	app.TranslateLine(0)
	app.translations.Wait()

	if got := app.GetLines().Lines[0].Translated; got != "" {
		t.Errorf("Expected no translation when relay is down, got %q", got)
	}
}

func TestDropLineAndTranslateElement(t *testing.T) {
	app := newTestApp(t)
	app.relay = translate.NewRelayClient(createMockRelay(t).URL)

	app.ToggleListening()
	app.UpdateTranscript("좋아요 그럼")

	added, err := app.DropLine(0, 100, 100)
	if err != nil {
		t.Fatalf("DropLine failed: %v", err)
	}
	if added.Kind != annotation.KindText || added.Text != "좋아요" {
		t.Fatalf("Unexpected element %+v", added)
	}

	app.SetTool("translate")
	effect := app.PointerDown(added.X1+1, added.Y1+5)
	if effect.Kind != annotation.EffectTranslate || effect.ID != added.ID {
		t.Fatalf("Expected translate effect, got %+v", effect)
	}
	app.translations.Wait()

	got := app.GetCanvasState().Elements()[0]
	if got.Text != "tr:좋아요" {
		t.Errorf("Expected translated element text, got %q", got.Text)
	}
}

func TestEditElement(t *testing.T) {
	app := newTestApp(t)
	app.ToggleListening()
	app.UpdateTranscript("맞죠 그리고")
	added, _ := app.DropLine(0, 20, 20)

	app.SetTool("edit")
	effect := app.PointerDown(added.X1+1, added.Y1+5)
	if effect.Kind != annotation.EffectEdit || effect.Text != "맞죠" {
		t.Fatalf("Expected edit effect, got %+v", effect)
	}
	if err := app.CommitEdit(added.ID, "맞아요"); err != nil {
		t.Fatalf("CommitEdit failed: %v", err)
	}
	if got := app.GetCanvasState().Elements()[0].Text; got != "맞아요" {
		t.Errorf("Expected edited text, got %q", got)
	}
	if code := codeOf(t, app.CommitEdit(added.ID, "again")); code != types.ErrNotFound {
		t.Errorf("Expected %s, got %s", types.ErrNotFound, code)
	}
}

func TestOpenPDFFailureKeepsState(t *testing.T) {
	app := newTestApp(t)
	app.SetTool("rectangle")
	app.PointerDown(1, 1)
	app.PointerUp()
	before := app.GetCanvasState()

	_, err := app.OpenPDF(filepath.Join(t.TempDir(), "missing.pdf"))
	if code := codeOf(t, err); code != types.ErrPDF {
		t.Errorf("Expected %s, got %s", types.ErrPDF, code)
	}
	after := app.GetCanvasState()
	if len(after.Elements()) != len(before.Elements()) || after.NumPages != before.NumPages {
		t.Error("Failed load should leave the canvas untouched")
	}
}

func TestOpenPDFData(t *testing.T) {
	app := newTestApp(t)

	info, err := app.OpenPDFData("none.pdf", "")
	if info != nil || err != nil {
		t.Errorf("Expected empty selection to be ignored, got (%v, %v)", info, err)
	}

	_, err = app.OpenPDFData("x.pdf", "!!not base64!!")
	if code := codeOf(t, err); code != types.ErrInvalidInput {
		t.Errorf("Expected %s, got %s", types.ErrInvalidInput, code)
	}

	_, err = app.OpenPDFData("notes.txt", base64.StdEncoding.EncodeToString([]byte("hello")))
	if code := codeOf(t, err); code != types.ErrPDF {
		t.Errorf("Expected %s, got %s", types.ErrPDF, code)
	}
}

func TestGetFrame(t *testing.T) {
	app := newTestApp(t)

	_, err := app.GetFrame()
	if code := codeOf(t, err); code != types.ErrNotFound {
		t.Errorf("Expected %s without a document, got %s", types.ErrNotFound, code)
	}

	loadTestDocument(t, app)
	if app.GetCanvasState().NumPages != 1 || app.GetCanvasState().FileName != "slides.pdf" {
		t.Fatalf("Unexpected canvas after load: %+v", app.GetCanvasState())
	}
	app.SetTool("line")
	app.PointerDown(0, 0)
	app.PointerMove(60, 60)
	app.PointerUp()

	frame, err := app.GetFrame()
	if err != nil {
		t.Fatalf("GetFrame failed: %v", err)
	}
	if !strings.HasPrefix(frame, "data:image/png;base64,") {
		t.Errorf("Unexpected frame prefix %q", frame[:30])
	}
}

func TestPageNavigation(t *testing.T) {
	app := newTestApp(t)
	loadTestDocument(t, app)

	if got := app.NextPage().Page; got != 1 {
		t.Errorf("Expected navigation clamped to page 1, got %d", got)
	}
	if got := app.PrevPage().Page; got != 1 {
		t.Errorf("Expected navigation clamped to page 1, got %d", got)
	}
}

func TestExportNotes(t *testing.T) {
	app := newTestApp(t)
	dst := filepath.Join(t.TempDir(), "notes.pdf")

	if code := codeOf(t, app.exportNotes(dst)); code != types.ErrPDF {
		t.Errorf("Expected %s with no lines, got %s", types.ErrPDF, code)
	}

	app.SetRecognitionLanguage("en-US")
	app.ToggleListening()
	app.UpdateTranscript("today we look at binary search trees")
	app.ToggleListening()

	if err := app.exportNotes(dst); err != nil {
		t.Fatalf("exportNotes failed: %v", err)
	}
	if fi, err := os.Stat(dst); err != nil || fi.Size() == 0 {
		t.Errorf("Expected a notes PDF at %s", dst)
	}
}

func TestExportAnnotated(t *testing.T) {
	app := newTestApp(t)
	dst := filepath.Join(t.TempDir(), "annotated.pdf")

	if code := codeOf(t, app.exportAnnotated(dst)); code != types.ErrNotFound {
		t.Errorf("Expected %s without a document, got %s", types.ErrNotFound, code)
	}

	loadTestDocument(t, app)
	app.SetTool("rectangle")
	app.PointerDown(10, 10)
	app.PointerMove(80, 60)
	app.PointerUp()

	if err := app.exportAnnotated(dst); err != nil {
		t.Fatalf("exportAnnotated failed: %v", err)
	}
	info, err := pdf.NewParser().GetPDFInfo(dst)
	if err != nil {
		t.Fatalf("exported PDF is unreadable: %v", err)
	}
	if info.PageCount != 1 {
		t.Errorf("Expected 1 page, got %d", info.PageCount)
	}
}

func TestRecognizerEventsOutsideWails(t *testing.T) {
	app := newTestApp(t)
	rec := &eventRecognizer{app: app}
	if err := rec.Start("ko-KR"); err != nil {
		t.Errorf("Start failed: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestShutdownReleasesDocument(t *testing.T) {
	app := newTestApp(t)
	loadTestDocument(t, app)
	app.shutdown(context.Background())
	if app.document() != nil {
		t.Error("Expected document to be released")
	}
}

