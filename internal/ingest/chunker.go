// Package ingest turns uploaded documents into embedded, searchable chunks.
package ingest

import (
	"strings"

	"github.com/mkondo/kotaeru/pkg/utils"
)

// minChunkLen discards fragments too short to carry meaning on their own.
const minChunkLen = 20

// Chunker splits normalized text into sentence-aligned chunks. Chunks never
// break inside a sentence; consecutive chunks share a short word overlap so
// answers spanning a boundary stay retrievable.
type Chunker struct {
	targetSize   int
	overlapWords int
}

// NewChunker creates a chunker. targetSize is the per-chunk character goal;
// overlap is given in characters and consumed as overlap/10 trailing words of
// the previous chunk.
func NewChunker(targetSize, overlap int) *Chunker {
	return &Chunker{
		targetSize:   targetSize,
		overlapWords: overlap / 10,
	}
}

// Chunk splits text into chunks. Sentences accumulate greedily until adding
// the next one would exceed targetSize; a sentence longer than targetSize is
// emitted whole. Fragments shorter than minChunkLen after trimming are
// dropped. The output is deterministic for a given input.
func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	flush := func() string {
		closed := strings.TrimSpace(buf.String())
		buf.Reset()
		if len(closed) >= minChunkLen {
			chunks = append(chunks, closed)
		}
		return closed
	}

	for _, sentence := range sentences {
		if buf.Len() > 0 && buf.Len()+1+len(sentence) > c.targetSize {
			closed := flush()
			if tail := utils.TailWords(strings.Fields(closed), c.overlapWords); len(tail) > 0 {
				buf.WriteString(strings.Join(tail, " "))
			}
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	flush()
	return chunks
}

// splitSentences breaks text on terminal punctuation (. ! ?) followed by
// whitespace or end of input. The terminator stays with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && runes[i+1] != ' ' {
			continue
		}
		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
