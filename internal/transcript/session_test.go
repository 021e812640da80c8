package transcript

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecnote/internal/types"
)

type fakeRecognizer struct {
	started  []string
	stops    int
	startErr error
}

func (f *fakeRecognizer) Start(language string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, language)
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.stops++
	return nil
}

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestToggleLifecycle(t *testing.T) {
	rec := &fakeRecognizer{}
	s := NewSession(Options{Language: "ko-KR", Recognizer: rec})

	listening, added, err := s.Toggle()
	require.NoError(t, err)
	assert.True(t, listening)
	assert.Empty(t, added)
	assert.Equal(t, []string{"ko-KR"}, rec.started)

	assert.Equal(t, []string{"안녕하세요"}, texts(s.Update("안녕하세요 오늘")))
	assert.Empty(t, s.Update("안녕하세요 오늘 수업은"), "no sentence ending yet")

	listening, added, err = s.Toggle()
	require.NoError(t, err)
	assert.False(t, listening)
	assert.Equal(t, []string{"오늘 수업은"}, texts(added), "pending fragment flushed on stop")
	assert.Equal(t, 1, rec.stops)
	assert.Len(t, s.Lines(), 2)
}

func TestStartClearsPreviousLines(t *testing.T) {
	s := NewSession(Options{Language: "en-US", ChunkWords: 2})
	s.Toggle()
	s.Update("one two three")
	s.Toggle()
	require.Len(t, s.Lines(), 2)

	s.Toggle()
	assert.Empty(t, s.Lines())
	assert.Equal(t, []string{"a b"}, texts(s.Update("a b")))
}

func TestUpdateIgnoredWhileStopped(t *testing.T) {
	s := NewSession(Options{Language: "en-US", ChunkWords: 1})
	assert.Nil(t, s.Update("hello"))
	assert.Empty(t, s.Lines())
}

func TestStartFailure(t *testing.T) {
	rec := &fakeRecognizer{startErr: errors.New("no microphone")}
	s := NewSession(Options{Recognizer: rec})

	listening, _, err := s.Toggle()
	require.Error(t, err)
	assert.False(t, listening)
	assert.False(t, s.Listening())
}

func TestBubblesStackAndMove(t *testing.T) {
	s := NewSession(Options{Language: "en-US", ChunkWords: 1})
	s.Toggle()
	lines := s.Update("a b c")
	require.Len(t, lines, 3)
	assert.Equal(t, 0.0, lines[0].Bubble.Y)
	assert.Equal(t, 2*BubbleSpacing, lines[2].Bubble.Y)

	require.NoError(t, s.MoveBubble(1, 300, 40))
	l, err := s.Line(1)
	require.NoError(t, err)
	assert.Equal(t, Bubble{X: 300, Y: 40}, l.Bubble)

	err = s.MoveBubble(7, 0, 0)
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}

func TestEditAndTranslateLine(t *testing.T) {
	s := NewSession(Options{Language: "en-US", ChunkWords: 2})
	s.Toggle()
	s.Update("hello there general kenobi")

	ok, err := s.SetTranslation(0, "hello there", "안녕하세요")
	require.NoError(t, err)
	assert.True(t, ok)
	l, _ := s.Line(0)
	assert.Equal(t, "안녕하세요", l.Display())

	require.NoError(t, s.EditLine(0, "hi there"))
	l, _ = s.Line(0)
	assert.Equal(t, "hi there", l.Display(), "edit drops the stale translation")

	ok, err = s.SetTranslation(0, "hello there", "안녕하세요")
	require.NoError(t, err)
	assert.False(t, ok, "line changed since request")

	ok, _ = s.SetTranslation(1, "general kenobi", "")
	assert.False(t, ok, "empty translation ignored")

	assert.Error(t, s.EditLine(-1, "x"))
}

func TestSetLanguageSwitchesPolicy(t *testing.T) {
	rec := &fakeRecognizer{}
	s := NewSession(Options{Language: "en-US", ChunkWords: 10, Recognizer: rec})
	s.Toggle()

	require.NoError(t, s.SetLanguage("ko-KR"))
	assert.Equal(t, "ko-KR", s.Language())
	assert.Equal(t, []string{"en-US", "ko-KR"}, rec.started)
	assert.Equal(t, []string{"좋아요"}, texts(s.Update("좋아요 그럼")))

	assert.Error(t, s.SetLanguage(""))
}

func TestSetLanguageWhileListeningFlushesPending(t *testing.T) {
	rec := &fakeRecognizer{}
	s := NewSession(Options{Language: "ko-KR", Recognizer: rec})
	s.Toggle()
	s.Update("감사합니다 그리고 다음 시간에")

	require.NoError(t, s.SetLanguage("en-US"))
	assert.Equal(t, []string{"감사합니다", "그리고 다음 시간에"}, texts(s.Lines()))
	assert.Empty(t, s.Transcript())

	s.Update("one two three")
	assert.Len(t, s.Lines(), 2)
	assert.Equal(t, "one two three", s.Snapshot().Pending)
}

func TestSnapshot(t *testing.T) {
	s := NewSession(Options{Language: "ko-KR"})
	s.Toggle()
	s.Update("감사합니다 그리고")

	snap := s.Snapshot()
	assert.True(t, snap.Listening)
	assert.Equal(t, "ko-KR", snap.Language)
	assert.Len(t, snap.Lines, 1)
	assert.Equal(t, "그리고", snap.Pending)
	assert.Equal(t, "감사합니다 그리고", s.Transcript())
}
