package chunker

import (
	"strings"
)

const (
	DefaultMaxChars = 1000
	DefaultOverlap  = 200
)

// separators are tried in order when looking for a split point.
var separators = []string{"\n\n", "\n", " "}

// Options controls how text is chunked. Sizes are measured in characters (runes).
type Options struct {
	MaxChars int
	Overlap  int
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index  int
	Text   string
	Offset int
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.Overlap < 0 || o.Overlap >= o.MaxChars {
		o.Overlap = 0
	}
	return o
}

// Split cuts text into chunks of at most MaxChars characters. Each chunk after
// the first repeats the last Overlap characters of its predecessor. Split points
// prefer a paragraph break, then a line break, then a space, and fall back to a
// hard cut at MaxChars.
func Split(text string, opts Options) []Chunk {
	opts = opts.withDefaults()

	runes := []rune(text)
	var chunks []Chunk
	if len(runes) == 0 {
		return chunks
	}

	start := 0
	for {
		end := len(runes)
		if end-start > opts.MaxChars {
			end = splitPoint(runes, start, opts)
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   string(runes[start:end]),
			Offset: start,
		})
		if end == len(runes) {
			break
		}
		start = end - opts.Overlap
	}
	return chunks
}

// splitPoint returns the exclusive end of the chunk starting at start. The end
// always lies past start+Overlap so the next chunk makes progress.
func splitPoint(runes []rune, start int, opts Options) int {
	limit := start + opts.MaxChars
	floor := start + opts.Overlap
	for _, sep := range separators {
		if end := lastBoundary(runes, []rune(sep), floor, limit); end > 0 {
			return end
		}
	}
	return limit
}

// lastBoundary finds the largest end in (floor, limit] such that runes[:end]
// finishes with sep. It returns 0 when there is none.
func lastBoundary(runes, sep []rune, floor, limit int) int {
	for end := limit; end > floor && end >= len(sep); end-- {
		if hasSuffix(runes[:end], sep) {
			return end
		}
	}
	return 0
}

func hasSuffix(runes, suffix []rune) bool {
	if len(suffix) > len(runes) {
		return false
	}
	tail := runes[len(runes)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}

// Join rebuilds the source text from chunks produced by Split, dropping the
// repeated overlap.
func Join(chunks []Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		runes := []rune(c.Text)
		skip := covered - c.Offset
		if skip < 0 {
			skip = 0
		}
		if skip >= len(runes) {
			continue
		}
		b.WriteString(string(runes[skip:]))
		covered = c.Offset + len(runes)
	}
	return b.String()
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
