// Package segment turns a growing speech transcript into discrete lines.
package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"lecnote/internal/logger"
)

// DefaultChunkWords is the chunk size for languages without a particle policy.
const DefaultChunkWords = 10

// KoreanEndings are the sentence-final endings that close a Korean line.
var KoreanEndings = []string{"니다", "냐", "요", "죠"}

// Policy splits text into complete lines and a trailing pending fragment.
// pending is always a verbatim suffix of text so callers can track how many
// bytes were consumed.
type Policy interface {
	Split(text string) (complete []string, pending string)
}

type word struct {
	text       string
	start, end int
}

// scanWords returns whitespace-separated words with their byte offsets.
func scanWords(text string) []word {
	var words []word
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{text: text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, word{text: text[start:], start: start, end: len(text)})
	}
	return words
}

func joinWords(words []word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}

// KoreanPolicy ends a line after every word carrying a sentence-final ending.
type KoreanPolicy struct{}

func (KoreanPolicy) Split(text string) ([]string, string) {
	words := scanWords(text)
	var lines []string
	first := 0
	for i, w := range words {
		if !hasKoreanEnding(strings.TrimRightFunc(w.text, unicode.IsPunct)) {
			continue
		}
		lines = append(lines, joinWords(words[first:i+1]))
		first = i + 1
	}
	if first >= len(words) {
		return lines, ""
	}
	return lines, text[words[first].start:]
}

// hasKoreanEnding matches the bare suffix. The streaming policy trims
// trailing punctuation first; the legacy formatter does not.
func hasKoreanEnding(w string) bool {
	for _, e := range KoreanEndings {
		if strings.HasSuffix(w, e) {
			return true
		}
	}
	return false
}

// WordCountPolicy cuts text into chunks of exactly N words regardless of punctuation.
type WordCountPolicy struct {
	N int
}

func (p WordCountPolicy) size() int {
	if p.N <= 0 {
		return DefaultChunkWords
	}
	return p.N
}

func (p WordCountPolicy) Split(text string) ([]string, string) {
	n := p.size()
	words := scanWords(text)
	full := len(words) / n * n

	var lines []string
	for i := 0; i < full; i += n {
		lines = append(lines, joinWords(words[i:i+n]))
	}
	if full == len(words) {
		return lines, ""
	}
	return lines, text[words[full].start:]
}

// Chunk returns every chunk including a final partial one.
func (p WordCountPolicy) Chunk(text string) []string {
	lines, pending := p.Split(text)
	if rest := joinWords(scanWords(pending)); rest != "" {
		lines = append(lines, rest)
	}
	return lines
}

// PolicyFor picks the policy for a BCP-47 recognition language. Korean uses
// sentence endings; anything else, including unparseable tags, uses word counts.
func PolicyFor(lang string, chunkWords int) Policy {
	tag, err := language.Parse(lang)
	if err != nil {
		logger.Warn("unparseable recognition language, using word chunks",
			logger.String("language", lang), logger.Err(err))
		return WordCountPolicy{N: chunkWords}
	}
	base, _ := tag.Base()
	korean, _ := language.Korean.Base()
	if base == korean {
		return KoreanPolicy{}
	}
	return WordCountPolicy{N: chunkWords}
}

// AddNewlineForKorean appends a newline to every word with a sentence-final ending.
func AddNewlineForKorean(input string) string {
	words := strings.Split(input, " ")
	for i, w := range words {
		if hasKoreanEnding(w) {
			words[i] = w + "\n"
		}
	}
	return strings.Join(words, " ")
}

// AddNewlineForEnglish joins fixed-size word chunks with newlines.
func AddNewlineForEnglish(input string) string {
	return strings.Join(WordCountPolicy{N: DefaultChunkWords}.Chunk(input), "\n")
}
