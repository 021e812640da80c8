package main

import (
	"context"
	"encoding/base64"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"lecnote/internal/annotation"
	"lecnote/internal/config"
	"lecnote/internal/logger"
	"lecnote/internal/pdf"
	"lecnote/internal/relay"
	"lecnote/internal/render"
	"lecnote/internal/transcript"
	"lecnote/internal/translate"
	"lecnote/internal/types"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Event names for frontend communication
const (
	EventCanvasUpdated    = "canvas-updated"
	EventLinesUpdated     = "lines-updated"
	EventRecognitionStart = "recognition-start"
	EventRecognitionStop  = "recognition-stop"
)

// relayAuto in relay_url means: find a relay on the local network.
const relayAuto = "auto"

// CanvasView is the canvas state sent to the front-end.
type CanvasView struct {
	annotation.State
	FileName string `json:"fileName"`
}

// App is the main Wails application controller. It owns the canvas store,
// the loaded document and the listening session, and binds them to the
// front-end.
type App struct {
	ctx    context.Context
	config *config.ConfigManager

	store    *annotation.Store
	renderer *render.Renderer
	frame    *render.Frame
	loader   *pdf.Loader
	exporter *pdf.Exporter
	notes    *pdf.NotesExporter
	session  *transcript.Session
	relay    *translate.RelayClient

	docMu sync.RWMutex
	doc   *pdf.Document

	// translations tracks in-flight translation goroutines.
	translations sync.WaitGroup

	// isWailsRuntime indicates if the app is running in a Wails environment
	// This is used to safely skip EventsEmit calls during tests
	isWailsRuntime bool
}

// safeEmit safely emits an event to the frontend.
// It only emits events when running in a Wails environment.
func (a *App) safeEmit(eventName string, data ...interface{}) {
	if !a.isWailsRuntime || a.ctx == nil {
		logger.Debug("event emit skipped (not in Wails runtime)",
			logger.String("event", eventName))
		return
	}
	runtime.EventsEmit(a.ctx, eventName, data...)
}

// SetWailsRuntime sets the Wails runtime flag.
func (a *App) SetWailsRuntime(isWails bool) {
	a.isWailsRuntime = isWails
}

// NewApp creates an App using the default config location.
func NewApp() (*App, error) {
	return NewAppWithConfig("")
}

// NewAppWithConfig creates an App with a custom config path and initializes
// every module from the loaded configuration.
func NewAppWithConfig(configPath string) (*App, error) {
	configMgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	if err := configMgr.Load(); err != nil {
		logger.Warn("failed to load config, using defaults", logger.Err(err))
	}

	a := &App{config: configMgr}
	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.config.GetConfig()

	renderer, err := render.NewRenderer()
	if err != nil {
		return err
	}
	a.renderer = renderer
	a.frame = render.NewFrame(renderer)

	a.loader = pdf.NewLoader(pdf.NewRasterizer(cfg.RasterDPI))
	a.exporter = pdf.NewExporter()
	a.notes = pdf.NewNotesExporter(cfg.NotesFontPath)

	a.store = annotation.NewStore(nil)
	a.store.OnChange(func(s annotation.State) {
		a.safeEmit(EventCanvasUpdated, a.view(s))
	})

	a.session = transcript.NewSession(transcript.Options{
		Language:   cfg.RecognitionLanguage,
		ChunkWords: cfg.ChunkWords,
		Recognizer: &eventRecognizer{app: a},
	})
	a.relay = translate.NewRelayClient(resolveRelayURL(cfg.RelayURL, relay.Discover))

	logger.Info("app initialized",
		logger.String("relay", a.relay.BaseURL()),
		logger.String("language", cfg.RecognitionLanguage),
		logger.Int("dpi", cfg.RasterDPI))
	return nil
}

// resolveRelayURL returns the configured relay URL, or the first relay
// found over mDNS when it is "auto".
func resolveRelayURL(configured string, discover func() ([]string, error)) string {
	if !strings.EqualFold(configured, relayAuto) {
		return configured
	}
	addrs, err := discover()
	if err != nil || len(addrs) == 0 {
		logger.Warn("no relay found on the local network, using default",
			logger.String("default", config.DefaultRelayURL), logger.Err(err))
		return config.DefaultRelayURL
	}
	logger.Info("relay discovered", logger.String("addr", addrs[0]), logger.Int("found", len(addrs)))
	return "http://" + addrs[0]
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	logger.Info("application starting up")
}

// shutdown releases the loaded document.
func (a *App) shutdown(ctx context.Context) {
	a.translations.Wait()
	a.docMu.Lock()
	defer a.docMu.Unlock()
	if err := a.doc.Close(); err != nil {
		logger.Warn("failed to remove uploaded document", logger.Err(err))
	}
	a.doc = nil
}

func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) document() *pdf.Document {
	a.docMu.RLock()
	defer a.docMu.RUnlock()
	return a.doc
}

func (a *App) view(s annotation.State) CanvasView {
	v := CanvasView{State: s}
	if doc := a.document(); doc != nil {
		v.FileName = doc.Info.FileName
	}
	return v
}

// --- Document ---

// OpenPDF loads and rasterizes a PDF. On failure the previous document and
// canvas stay as they were.
func (a *App) OpenPDF(path string) (*pdf.PDFInfo, error) {
	logger.Info("opening PDF", logger.String("path", path))
	doc, err := a.loader.Load(a.context(), path)
	if err != nil {
		logger.Error("failed to load PDF", err, logger.String("path", path))
		return nil, types.NewAppError(types.ErrPDF, "failed to load PDF", err)
	}
	a.setDocument(doc)
	return doc.Info, nil
}

// OpenPDFData loads a PDF picked through the browser file input. The data
// is base64 encoded. An empty selection is ignored.
func (a *App) OpenPDFData(name, data string) (*pdf.PDFInfo, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid file data", name, err)
	}
	doc, err := a.loader.LoadFromBytes(a.context(), name, raw)
	if err != nil {
		logger.Error("failed to load uploaded PDF", err, logger.String("name", name))
		return nil, types.NewAppError(types.ErrPDF, "failed to load PDF", err)
	}
	if doc == nil {
		return nil, nil
	}
	a.setDocument(doc)
	return doc.Info, nil
}

// OpenPDFFileDialog asks for a PDF and opens it. Cancelling returns nil.
func (a *App) OpenPDFFileDialog() (*pdf.PDFInfo, error) {
	selection, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open lecture PDF",
		Filters: []runtime.FileFilter{
			{DisplayName: "PDF files (*.pdf)", Pattern: "*.pdf"},
		},
	})
	if err != nil {
		logger.Error("file dialog error", err)
		return nil, types.NewAppError(types.ErrInternal, "failed to open file dialog", err)
	}
	if selection == "" {
		return nil, nil
	}
	return a.OpenPDF(selection)
}

func (a *App) setDocument(doc *pdf.Document) {
	a.docMu.Lock()
	old := a.doc
	a.doc = doc
	a.docMu.Unlock()

	if err := old.Close(); err != nil {
		logger.Warn("failed to remove previous upload", logger.Err(err))
	}
	a.frame.Reset()
	a.store.Update(func(s annotation.State) annotation.State {
		return s.LoadDocument(doc.NumPages())
	})
	logger.Info("document loaded",
		logger.String("file", doc.Info.FileName), logger.Int("pages", doc.NumPages()))
}

// --- Canvas ---

func (a *App) GetCanvasState() CanvasView {
	return a.view(a.store.State())
}

// GetFrame renders the current page with its annotations as a PNG data
// URL. If rendering fails the last good frame is returned.
func (a *App) GetFrame() (string, error) {
	doc := a.document()
	if doc == nil {
		return "", types.NewAppError(types.ErrNotFound, "no document loaded", nil)
	}
	s := a.store.State()
	img := a.frame.Update(doc.Page(s.Page), s.Elements())
	return render.EncodePNGDataURL(img)
}

func (a *App) SetTool(name string) error {
	_, err := a.store.TryUpdate(func(s annotation.State) (annotation.State, error) {
		return s.SetTool(name)
	})
	if err != nil {
		logger.Warn("rejected tool change", logger.String("tool", name))
	}
	return err
}

// PointerDown starts a gesture. An edit effect tells the front-end to open
// the inline editor; a translate effect is handled here.
func (a *App) PointerDown(x, y float64) annotation.Effect {
	effect := a.store.UpdateEffect(func(s annotation.State) (annotation.State, annotation.Effect) {
		return s.PointerDown(x, y)
	})
	if effect.Kind == annotation.EffectTranslate {
		a.translateElement(effect)
	}
	return effect
}

// PointerMove updates the gesture and returns the cursor to show.
func (a *App) PointerMove(x, y float64) string {
	s := a.store.State()
	if s.Action != annotation.ActionNone {
		s = a.store.Update(func(s annotation.State) annotation.State {
			return s.PointerMove(x, y)
		})
	}
	return s.CursorAt(x, y)
}

func (a *App) PointerUp() {
	a.store.Update(annotation.State.PointerUp)
}

func (a *App) CommitEdit(id int, text string) error {
	_, err := a.store.TryUpdate(func(s annotation.State) (annotation.State, error) {
		return s.CommitEdit(id, text)
	})
	return err
}

func (a *App) CancelEdit() {
	a.store.Update(annotation.State.CancelEdit)
}

func (a *App) NextPage() CanvasView {
	return a.view(a.store.Update(annotation.State.NextPage))
}

func (a *App) PrevPage() CanvasView {
	return a.view(a.store.Update(annotation.State.PrevPage))
}

// translateElement fetches a translation in the background and applies it
// if the element is still unchanged when the reply arrives.
func (a *App) translateElement(effect annotation.Effect) {
	a.translations.Add(1)
	go func() {
		defer a.translations.Done()
		translated := a.relay.Translate(a.context(), effect.Text)
		if translated == "" {
			return
		}
		a.store.Update(func(s annotation.State) annotation.State {
			next, applied := s.ApplyTranslation(effect.Page, effect.ID, effect.Text, translated)
			if !applied {
				logger.Debug("dropped stale translation", logger.Int("id", effect.ID))
			}
			return next
		})
	}()
}

// --- Transcript ---

// eventRecognizer drives the web view's speech recognition through events.
type eventRecognizer struct {
	app *App
}

func (r *eventRecognizer) Start(language string) error {
	r.app.safeEmit(EventRecognitionStart, map[string]interface{}{
		"language":       language,
		"continuous":     true,
		"interimResults": true,
	})
	return nil
}

func (r *eventRecognizer) Stop() error {
	r.app.safeEmit(EventRecognitionStop)
	return nil
}

func (a *App) emitLines() {
	a.safeEmit(EventLinesUpdated, a.session.Snapshot())
}

// ToggleListening starts or stops speech capture and returns whether the
// session is now listening.
func (a *App) ToggleListening() (bool, error) {
	listening, lines, err := a.session.Toggle()
	if err != nil {
		logger.Error("failed to toggle listening", err)
		return false, err
	}
	logger.Info("listening toggled", logger.Bool("listening", listening), logger.Int("flushed", len(lines)))
	a.emitLines()
	return listening, nil
}

// UpdateTranscript receives the recognizer's full transcript so far and
// returns the lines it completed.
func (a *App) UpdateTranscript(text string) []transcript.Line {
	lines := a.session.Update(text)
	if len(lines) > 0 {
		a.emitLines()
	}
	return lines
}

func (a *App) SetRecognitionLanguage(language string) error {
	if err := a.session.SetLanguage(language); err != nil {
		return err
	}
	a.config.SetRecognitionLanguage(language)
	a.emitLines()
	return nil
}

func (a *App) GetLines() transcript.Snapshot {
	return a.session.Snapshot()
}

func (a *App) EditLine(index int, text string) error {
	if err := a.session.EditLine(index, text); err != nil {
		return err
	}
	a.emitLines()
	return nil
}

func (a *App) MoveBubble(index int, x, y float64) error {
	return a.session.MoveBubble(index, x, y)
}

// TranslateLine translates a transcript line in the background. The
// translation is applied only if the line text is unchanged by then.
func (a *App) TranslateLine(index int) error {
	line, err := a.session.Line(index)
	if err != nil {
		return err
	}
	a.translations.Add(1)
	go func() {
		defer a.translations.Done()
		translated := a.relay.Translate(a.context(), line.Text)
		if translated == "" {
			return
		}
		applied, err := a.session.SetTranslation(index, line.Text, translated)
		if err != nil || !applied {
			logger.Debug("dropped stale line translation", logger.Int("index", index))
			return
		}
		a.emitLines()
	}()
	return nil
}

// DropLine places a transcript line on the canvas as a text element at
// (x, y), using its translation when it has one.
func (a *App) DropLine(index int, x, y float64) (annotation.Element, error) {
	line, err := a.session.Line(index)
	if err != nil {
		return annotation.Element{}, err
	}
	var added annotation.Element
	a.store.Update(func(s annotation.State) annotation.State {
		s, added = s.AddText(line.Display(), x, y)
		return s
	})
	return added, nil
}

// --- Export ---

// ExportNotes asks for a destination and writes the transcript notes PDF.
func (a *App) ExportNotes() (string, error) {
	savePath, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save lecture notes",
		DefaultFilename: "notes.pdf",
		Filters: []runtime.FileFilter{
			{DisplayName: "PDF files (*.pdf)", Pattern: "*.pdf"},
		},
	})
	if err != nil {
		logger.Error("save dialog error", err)
		return "", types.NewAppError(types.ErrInternal, "failed to open save dialog", err)
	}
	if savePath == "" {
		return "", nil // User cancelled
	}
	return savePath, a.exportNotes(savePath)
}

func (a *App) exportNotes(dst string) error {
	if err := a.notes.Export(dst, a.session.Lines()); err != nil {
		return types.NewAppError(types.ErrPDF, "failed to export notes", err)
	}
	return nil
}

// ExportAnnotatedPDF asks for a destination and writes the document with
// the annotations drawn on top of each page.
func (a *App) ExportAnnotatedPDF() (string, error) {
	doc := a.document()
	if doc == nil {
		return "", types.NewAppError(types.ErrNotFound, "no document loaded", nil)
	}
	base := strings.TrimSuffix(doc.Info.FileName, filepath.Ext(doc.Info.FileName))
	savePath, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save annotated PDF",
		DefaultFilename: base + "_annotated.pdf",
		Filters: []runtime.FileFilter{
			{DisplayName: "PDF files (*.pdf)", Pattern: "*.pdf"},
		},
	})
	if err != nil {
		logger.Error("save dialog error", err)
		return "", types.NewAppError(types.ErrInternal, "failed to open save dialog", err)
	}
	if savePath == "" {
		return "", nil // User cancelled
	}
	return savePath, a.exportAnnotated(savePath)
}

func (a *App) exportAnnotated(dst string) error {
	doc := a.document()
	if doc == nil {
		return types.NewAppError(types.ErrNotFound, "no document loaded", nil)
	}

	s := a.store.State()
	overlays := make(map[int]image.Image)
	for page := 1; page <= doc.NumPages(); page++ {
		elements := s.PageElements(page)
		if len(elements) == 0 {
			continue
		}
		bounds := doc.Page(page).Bounds()
		overlay, err := a.renderer.RenderOverlay(bounds.Dx(), bounds.Dy(), elements)
		if err != nil {
			return err
		}
		overlays[page] = overlay
	}

	if err := a.exporter.ExportAnnotated(a.context(), doc.Info.FilePath, dst, overlays); err != nil {
		return types.NewAppError(types.ErrPDF, "failed to export annotated PDF", err)
	}
	logger.Info("annotated PDF exported",
		logger.String("output", dst), logger.Int("annotatedPages", len(overlays)))
	return nil
}
