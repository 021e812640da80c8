// Package transcript tracks a listening session: the live transcript from the
// speech recognizer, the lines cut from it and the bubbles that show them.
package transcript

import (
	"fmt"
	"sync"

	"lecnote/internal/logger"
	"lecnote/internal/segment"
	"lecnote/internal/types"
)

// BubbleSpacing is the vertical gap between freshly created bubbles.
const BubbleSpacing = 32.0

// Recognizer controls the external speech recognition engine. The engine
// itself reports transcripts back through Session.Update.
type Recognizer interface {
	Start(language string) error
	Stop() error
}

// Bubble is the on-screen position of a draggable transcript chip.
type Bubble struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is one segmented chunk of speech.
type Line struct {
	Text       string `json:"text"`
	Translated string `json:"translated,omitempty"`
	Bubble     Bubble `json:"bubble"`
}

// Display is the text the bubble shows: the translation once there is one.
func (l Line) Display() string {
	if l.Translated != "" {
		return l.Translated
	}
	return l.Text
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	Listening bool   `json:"listening"`
	Language  string `json:"language"`
	Lines     []Line `json:"lines"`
	Pending   string `json:"pending"`
}

// Options configures a Session.
type Options struct {
	Language   string
	ChunkWords int
	Recognizer Recognizer
}

type Session struct {
	mu         sync.Mutex
	listening  bool
	language   string
	chunkWords int
	transcript string
	lines      []Line
	seg        *segment.Segmenter
	recognizer Recognizer
	log        logger.Logger
}

func NewSession(opts Options) *Session {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = segment.DefaultChunkWords
	}
	if opts.Language == "" {
		opts.Language = "ko-KR"
	}
	return &Session{
		language:   opts.Language,
		chunkWords: opts.ChunkWords,
		seg:        segment.NewSegmenter(segment.PolicyFor(opts.Language, opts.ChunkWords)),
		recognizer: opts.Recognizer,
		log:        logger.With(logger.Component("transcript")),
	}
}

// Toggle starts listening if stopped and stops if listening. Starting
// clears previous lines; stopping flushes the pending fragment as a final
// line. It returns the lines added by the toggle.
func (s *Session) Toggle() (bool, []Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return false, s.stopLocked(), nil
	}
	if err := s.startLocked(); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

func (s *Session) startLocked() error {
	if s.recognizer != nil {
		if err := s.recognizer.Start(s.language); err != nil {
			s.log.Error("failed to start recognizer", err, logger.String("language", s.language))
			return types.NewAppError(types.ErrInternal, "failed to start speech recognition", err)
		}
	}
	s.listening = true
	s.transcript = ""
	s.lines = nil
	s.seg.Reset()
	s.log.Info("listening started", logger.String("language", s.language))
	return nil
}

func (s *Session) stopLocked() []Line {
	if s.recognizer != nil {
		if err := s.recognizer.Stop(); err != nil {
			s.log.Warn("failed to stop recognizer", logger.Err(err))
		}
	}
	s.listening = false
	added := s.appendLocked(s.seg.Flush())
	s.log.Info("listening stopped", logger.Int("lines", len(s.lines)))
	return added
}

func (s *Session) appendLocked(texts []string) []Line {
	added := make([]Line, 0, len(texts))
	for _, t := range texts {
		l := Line{Text: t, Bubble: Bubble{Y: float64(len(s.lines)) * BubbleSpacing}}
		s.lines = append(s.lines, l)
		added = append(added, l)
	}
	return added
}

// Update ingests the full transcript reported by the recognizer and returns
// lines completed since the last update. Updates while stopped are ignored.
func (s *Session) Update(transcript string) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listening {
		return nil
	}
	s.transcript = transcript
	return s.appendLocked(s.seg.Next(transcript))
}

// SetLanguage switches recognition language and segmentation policy. A
// running recognizer is restarted with the new language after the pending
// fragment is flushed as a line.
func (s *Session) SetLanguage(language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if language == "" {
		return types.NewAppError(types.ErrInvalidInput, "recognition language is empty", nil)
	}
	s.language = language
	s.seg.SetPolicy(segment.PolicyFor(language, s.chunkWords))

	if s.listening && s.recognizer != nil {
		if err := s.recognizer.Stop(); err != nil {
			s.log.Warn("failed to stop recognizer", logger.Err(err))
		}
		// the restarted recognizer reports a fresh transcript
		s.appendLocked(s.seg.Flush())
		s.seg.Reset()
		s.transcript = ""
		if err := s.recognizer.Start(language); err != nil {
			s.listening = false
			return types.NewAppError(types.ErrInternal, "failed to restart speech recognition", err)
		}
	}
	return nil
}

func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Lines returns a copy of all lines.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns line i.
func (s *Session) Line(i int) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return Line{}, err
	}
	return s.lines[i], nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{
		Listening: s.listening,
		Language:  s.language,
		Lines:     lines,
		Pending:   s.seg.Pending(),
	}
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.lines) {
		return types.NewAppErrorWithDetails(types.ErrNotFound, "no such transcript line",
			fmt.Sprintf("index %d of %d", i, len(s.lines)), nil)
	}
	return nil
}

// EditLine replaces the text of line i and drops any stale translation.
func (s *Session) EditLine(i int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.lines[i].Text = text
	s.lines[i].Translated = ""
	return nil
}

// SetTranslation records the translation of line i, provided the line still
// reads original. It reports whether the translation was applied.
func (s *Session) SetTranslation(i int, original, translated string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return false, err
	}
	if translated == "" || s.lines[i].Text != original {
		return false, nil
	}
	s.lines[i].Translated = translated
	return true, nil
}

// MoveBubble repositions the bubble of line i.
func (s *Session) MoveBubble(i int, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.lines[i].Bubble = Bubble{X: x, Y: y}
	return nil
}
