package annotation

import (
	"lecnote/internal/types"
)

// Tool is the active interaction mode.
type Tool string

const (
	ToolSelection Tool = "selection"
	ToolLine      Tool = "line"
	ToolRectangle Tool = "rectangle"
	ToolDelete    Tool = "delete"
	ToolEdit      Tool = "edit"
	ToolTranslate Tool = "translate"
)

// ParseTool validates a tool name coming from the front-end.
func ParseTool(s string) (Tool, error) {
	switch t := Tool(s); t {
	case ToolSelection, ToolLine, ToolRectangle, ToolDelete, ToolEdit, ToolTranslate:
		return t, nil
	}
	return "", types.NewAppErrorWithDetails(types.ErrInvalidInput, "unknown tool", s, nil)
}

func (t Tool) shapeKind() (Kind, bool) {
	switch t {
	case ToolLine:
		return KindLine, true
	case ToolRectangle:
		return KindRectangle, true
	}
	return 0, false
}

// Action is the pointer gesture in progress.
type Action string

const (
	ActionNone    Action = "none"
	ActionDrawing Action = "drawing"
	ActionMoving  Action = "moving"
)

// Selection is the element being drawn or moved, with the pointer offset
// from its first corner at grab time.
type Selection struct {
	ID       int     `json:"id"`
	Snapshot Element `json:"snapshot"`
	OffsetX  float64 `json:"offsetX"`
	OffsetY  float64 `json:"offsetY"`
}

// Editing is the text element open for inline editing.
type Editing struct {
	Page int    `json:"page"`
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// EffectKind tells the caller what to do after a pointer-down.
type EffectKind string

const (
	EffectNone      EffectKind = ""
	EffectEdit      EffectKind = "edit"
	EffectTranslate EffectKind = "translate"
)

// Effect is work a pointer-down asks the caller to perform outside the store.
type Effect struct {
	Kind EffectKind `json:"kind"`
	Page int        `json:"page"`
	ID   int        `json:"id"`
	Text string     `json:"text"`
}

// State is an immutable snapshot of the canvas. Methods return a new State
// and never modify the receiver.
type State struct {
	Page      int               `json:"page"`
	NumPages  int               `json:"numPages"`
	Tool      Tool              `json:"tool"`
	Action    Action            `json:"action"`
	Pages     map[int][]Element `json:"pages"`
	Selection *Selection        `json:"selection,omitempty"`
	Editing   *Editing          `json:"editing,omitempty"`
	// NextID is never decremented, so ids stay unique across pages and deletions.
	NextID int `json:"nextId"`
	// Version is stamped by Store on every update.
	Version uint64 `json:"version"`

	measurer Measurer
}

// NewState returns an empty canvas on page 1 with the line tool active.
func NewState(m Measurer) State {
	if m == nil {
		m = DefaultMeasurer()
	}
	return State{
		Page:     1,
		Tool:     ToolLine,
		Action:   ActionNone,
		Pages:    map[int][]Element{},
		NextID:   1,
		measurer: m,
	}
}

func (s State) m() Measurer {
	if s.measurer == nil {
		return DefaultMeasurer()
	}
	return s.measurer
}

// Elements returns the current page's elements in z-order.
func (s State) Elements() []Element {
	return s.PageElements(s.Page)
}

// PageElements returns a copy of a page's element list.
func (s State) PageElements(page int) []Element {
	src := s.Pages[page]
	out := make([]Element, len(src))
	copy(out, src)
	return out
}

// withPage returns a copy of s whose page list is replaced. Other pages
// share their slices with s, which is safe because slices are never
// modified in place.
func (s State) withPage(page int, elements []Element) State {
	pages := make(map[int][]Element, len(s.Pages)+1)
	for k, v := range s.Pages {
		pages[k] = v
	}
	pages[page] = elements
	s.Pages = pages
	return s
}

func (s State) indexOf(page, id int) int {
	for i, e := range s.Pages[page] {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// replace swaps the element with e.ID on page for e.
func (s State) replace(page int, e Element) State {
	i := s.indexOf(page, e.ID)
	if i < 0 {
		return s
	}
	list := s.PageElements(page)
	list[i] = e
	return s.withPage(page, list)
}

func (s State) remove(page, id int) State {
	src := s.Pages[page]
	list := make([]Element, 0, len(src))
	for _, e := range src {
		if e.ID != id {
			list = append(list, e)
		}
	}
	return s.withPage(page, list)
}

func (s State) appendElement(page int, e Element) State {
	src := s.Pages[page]
	list := make([]Element, len(src), len(src)+1)
	copy(list, src)
	return s.withPage(page, append(list, e))
}

func (s State) idle() State {
	s.Action = ActionNone
	s.Selection = nil
	return s
}

// SetTool switches the interaction mode. Elements are untouched.
func (s State) SetTool(name string) (State, error) {
	t, err := ParseTool(name)
	if err != nil {
		return s, err
	}
	s.Tool = t
	s.Editing = nil
	return s.idle(), nil
}

// PointerDown starts the gesture for the active tool at (x, y).
func (s State) PointerDown(x, y float64) (State, Effect) {
	elements := s.Pages[s.Page]
	hit := ElementAt(elements, x, y, s.m())

	if kind, ok := s.Tool.shapeKind(); ok {
		e := newShape(s.NextID, kind, x, y, x, y)
		s.NextID++
		s = s.appendElement(s.Page, e)
		s.Action = ActionDrawing
		s.Selection = &Selection{ID: e.ID, Snapshot: e}
		return s, Effect{}
	}

	switch s.Tool {
	case ToolSelection:
		if hit < 0 {
			return s.idle(), Effect{}
		}
		e := elements[hit]
		s.Action = ActionMoving
		s.Selection = &Selection{ID: e.ID, Snapshot: e, OffsetX: x - e.X1, OffsetY: y - e.Y1}
		return s, Effect{}

	case ToolDelete:
		if hit < 0 {
			return s.idle(), Effect{}
		}
		return s.remove(s.Page, elements[hit].ID).idle(), Effect{}

	case ToolEdit, ToolTranslate:
		if hit < 0 || elements[hit].Kind != KindText {
			return s.idle(), Effect{}
		}
		e := elements[hit]
		if s.Tool == ToolEdit {
			s.Editing = &Editing{Page: s.Page, ID: e.ID, Text: e.Text}
			return s.idle(), Effect{Kind: EffectEdit, Page: s.Page, ID: e.ID, Text: e.Text}
		}
		return s.idle(), Effect{Kind: EffectTranslate, Page: s.Page, ID: e.ID, Text: e.Text}
	}
	return s, Effect{}
}

// PointerMove drags the second corner while drawing, or the whole element
// while moving.
func (s State) PointerMove(x, y float64) State {
	if s.Selection == nil {
		return s
	}
	i := s.indexOf(s.Page, s.Selection.ID)
	if i < 0 {
		return s.idle()
	}
	e := s.Pages[s.Page][i]

	switch s.Action {
	case ActionDrawing:
		return s.replace(s.Page, e.withCorner(x, y))
	case ActionMoving:
		snap := s.Selection.Snapshot
		moved := snap.movedTo(x-s.Selection.OffsetX, y-s.Selection.OffsetY)
		if moved.Kind == KindText {
			// the text may have been translated since the grab
			moved = moved.withText(e.Text, s.m())
		}
		return s.replace(s.Page, moved)
	}
	return s
}

// PointerUp finishes the gesture; the element keeps its last geometry.
func (s State) PointerUp() State {
	return s.idle()
}

// CursorAt returns the CSS cursor to show while hovering at (x, y).
func (s State) CursorAt(x, y float64) string {
	if s.Action == ActionDrawing {
		return "crosshair"
	}
	hit := ElementAt(s.Pages[s.Page], x, y, s.m()) >= 0
	switch {
	case s.Tool == ToolSelection && hit:
		return "move"
	case s.Tool == ToolDelete && hit:
		return "pointer"
	case (s.Tool == ToolEdit || s.Tool == ToolTranslate) && hit:
		return "text"
	}
	return "default"
}

// CommitEdit writes the edited text back. Empty text removes the element.
func (s State) CommitEdit(id int, text string) (State, error) {
	if s.Editing == nil || s.Editing.ID != id {
		return s, types.NewAppError(types.ErrNotFound, "no edit in progress for element", nil)
	}
	page := s.Editing.Page
	s.Editing = nil

	i := s.indexOf(page, id)
	if i < 0 {
		return s, types.NewAppError(types.ErrNotFound, "element no longer exists", nil)
	}
	if text == "" {
		return s.remove(page, id), nil
	}
	return s.replace(page, s.Pages[page][i].withText(text, s.m())), nil
}

// CancelEdit closes the inline editor without changes.
func (s State) CancelEdit() State {
	s.Editing = nil
	return s
}

// ApplyTranslation replaces a text element's content with its translation.
// The update is dropped if the element was deleted or its text changed
// since the translation was requested, or if the translation is empty.
func (s State) ApplyTranslation(page, id int, original, translated string) (State, bool) {
	if translated == "" {
		return s, false
	}
	i := s.indexOf(page, id)
	if i < 0 {
		return s, false
	}
	e := s.Pages[page][i]
	if e.Kind != KindText || e.Text != original {
		return s, false
	}
	return s.replace(page, e.withText(translated, s.m())), true
}

// AddText places a text element on the current page at (x, y).
func (s State) AddText(text string, x, y float64) (State, Element) {
	e := newText(s.NextID, text, x, y, s.m())
	s.NextID++
	return s.appendElement(s.Page, e), e
}

// LoadDocument resets the canvas for a document with numPages pages.
func (s State) LoadDocument(numPages int) State {
	s.NumPages = numPages
	s.Page = 1
	s.Pages = map[int][]Element{}
	s.Editing = nil
	return s.idle()
}

// GoToPage moves to page, clamped to [1, NumPages].
func (s State) GoToPage(page int) State {
	if page < 1 {
		page = 1
	}
	if s.NumPages > 0 && page > s.NumPages {
		page = s.NumPages
	}
	if s.NumPages == 0 {
		page = s.Page
	}
	if page == s.Page {
		return s
	}
	s.Page = page
	s.Editing = nil
	return s.idle()
}

func (s State) NextPage() State { return s.GoToPage(s.Page + 1) }

func (s State) PrevPage() State { return s.GoToPage(s.Page - 1) }
