// Package rag implements retrieval over the product catalog and the
// technical documentation corpus: a SQLite chunk store with OpenAI
// embeddings ranked by cosine similarity.
package rag

import "strings"

var defaultSeparators = []string{"\n\n", "\n", ".", " "}

// Splitter cuts text into overlapping chunks for embedding. It prefers
// breaking on the coarsest separator that keeps chunks under the size
// limit, falling back to finer ones.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 8
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// Split returns the chunks of text, each at most ChunkSize runes, with
// Overlap runes carried between adjacent chunks. Whitespace-only chunks
// are dropped.
func (s *Splitter) Split(text string) []string {
	var out []string
	for _, piece := range s.withOverlap(s.split(text, 0)) {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

func (s *Splitter) split(text string, sepIdx int) []string {
	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}
	}
	if sepIdx >= len(defaultSeparators) {
		return s.hardSplit(runes)
	}

	sep := defaultSeparators[sepIdx]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return s.split(text, sepIdx+1)
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, part := range parts {
		candidate := part
		if current.Len() > 0 {
			candidate = current.String() + sep + part
		}
		if len([]rune(candidate)) <= s.ChunkSize {
			current.Reset()
			current.WriteString(candidate)
			continue
		}
		flush()
		if len([]rune(part)) > s.ChunkSize {
			chunks = append(chunks, s.split(part, sepIdx+1)...)
		} else {
			current.WriteString(part)
		}
	}
	flush()
	return chunks
}

// hardSplit cuts at fixed width when no separator fits.
func (s *Splitter) hardSplit(runes []rune) []string {
	step := s.ChunkSize
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// withOverlap prefixes each chunk after the first with the tail of its
// predecessor so context survives chunk boundaries.
func (s *Splitter) withOverlap(chunks []string) []string {
	if s.Overlap == 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := prev
		if len(prev) > s.Overlap {
			tail = prev[len(prev)-s.Overlap:]
		}
		out[i] = string(tail) + chunks[i]
	}
	return out
}
