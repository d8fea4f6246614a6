package chunker

import (
	"regexp"
	"strings"

	"corpusqa/internal/domain"
)

var (
	// headingPattern matches section markers that start a new chunk even
	// without a blank line before them: a capitalized heading ending in a
	// colon ("Emergency Ward:") or a top-level enumerated marker ("1." / "2)").
	headingPattern = regexp.MustCompile(`^([A-Z][A-Za-z0-9 /&'-]*:|\d+[.)])\s`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ParagraphChunker splits corpus text into retrievable units on structural
// boundaries: blank-line-separated paragraphs and heading/enumeration
// markers. Segments shorter than the minimum length floor are discarded.
// Chunking is deterministic and idempotent for a fixed input.
type ParagraphChunker struct {
	minChars int
}

func NewParagraphChunker(minChars int) *ParagraphChunker {
	if minChars < 0 {
		minChars = 0
	}
	return &ParagraphChunker{minChars: minChars}
}

func (c *ParagraphChunker) Chunk(raw string) []domain.Chunk {
	segments := c.split(raw)

	var chunks []domain.Chunk
	for _, seg := range segments {
		text := normalize(seg)
		if len(text) < c.minChars {
			// Normal filtering, not an error: trivial fragments carry no
			// retrievable signal.
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Text:  text,
		})
	}

	return chunks
}

// split produces raw candidate segments. Blank lines always end the current
// segment; a heading or enumeration marker ends it and starts a new one.
// If no boundary matches, the whole text is a single segment.
func (c *ParagraphChunker) split(raw string) []string {
	lines := strings.Split(raw, "\n")

	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if headingPattern.MatchString(line) {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	return segments
}

// normalize collapses whitespace runs to single spaces and trims the ends.
func normalize(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
