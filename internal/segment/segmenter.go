package segment

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Segmenter feeds an ever-growing transcript through a Policy and emits each
// line once. It remembers how many bytes of the transcript were already
// emitted and only splits what follows.
type Segmenter struct {
	mu     sync.Mutex
	policy Policy
	cursor int
	last   string
}

func NewSegmenter(policy Policy) *Segmenter {
	return &Segmenter{policy: policy}
}

// Next ingests the full transcript and returns lines not emitted before.
func (s *Segmenter) Next(transcript string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript = norm.NFC.String(transcript)
	s.cursor = resume(transcript, s.cursor)
	s.last = transcript

	rest := transcript[s.cursor:]
	lines, pending := s.policy.Split(rest)
	s.cursor += len(rest) - len(pending)
	return lines
}

// resume maps the emitted byte count onto a possibly revised transcript. It
// never moves backwards past emitted text; a word the cursor lands inside
// belongs to an emitted line and is skipped.
func resume(transcript string, cursor int) int {
	if cursor >= len(transcript) {
		return len(transcript)
	}
	for cursor < len(transcript) && !utf8.RuneStart(transcript[cursor]) {
		cursor++
	}
	if cursor == 0 {
		return 0
	}
	prev, _ := utf8.DecodeLastRuneInString(transcript[:cursor])
	if unicode.IsSpace(prev) {
		return cursor
	}
	for cursor < len(transcript) {
		r, size := utf8.DecodeRuneInString(transcript[cursor:])
		if unicode.IsSpace(r) {
			break
		}
		cursor += size
	}
	return cursor
}

// Pending returns the fragment that has not formed a complete line yet.
func (s *Segmenter) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.last[s.cursor:])
}

// Flush emits the pending fragment as a final line, used when listening stops.
func (s *Segmenter) Flush() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rest := strings.Join(strings.Fields(s.last[s.cursor:]), " ")
	s.cursor = len(s.last)
	if rest == "" {
		return nil
	}
	return []string{rest}
}

// Reset forgets everything emitted so far.
func (s *Segmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = 0
	s.last = ""
}

// SetPolicy swaps the policy. Already emitted text stays emitted.
func (s *Segmenter) SetPolicy(policy Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
}
