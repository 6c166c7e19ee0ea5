// Package chunker provides pure text segmentation for embedding
// generation. Both strategies operate on Unicode grapheme clusters and
// never split inside a multi-codepoint character.
package chunker

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

// Split segments text according to the given strategy.
func Split(text string, strategy domain.ChunkStrategy) ([]string, error) {
	switch strategy.Kind {
	case domain.StrategySemantic:
		return Semantic(text, strategy.MaxSize)
	case domain.StrategyFixed, "":
		return FixedSize(text, strategy.Size, strategy.Overlap)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidChunkConfig, strategy.Kind)
	}
}

// FixedSize produces consecutive windows of size graphemes, each window
// sharing overlap graphemes with its predecessor. The final window may be
// shorter than size. Empty input yields an empty result, not an error.
//
// Concatenating the non-overlapping portions of the returned chunks
// reconstructs the input exactly; windows are raw grapheme runs and are
// never trimmed.
func FixedSize(text string, size, overlap int) ([]string, error) {
	if overlap <= 0 || size <= overlap {
		return nil, fmt.Errorf("%w: size %d must exceed overlap %d and overlap must be positive",
			domain.ErrInvalidChunkConfig, size, overlap)
	}
	if text == "" {
		return []string{}, nil
	}

	return windows(graphemes(text), size, size-overlap), nil
}

// Semantic splits on paragraph boundaries first, then on sentence
// boundaries, accumulating sentences until adding the next one would
// exceed maxSize graphemes. A single sentence longer than maxSize is
// re-segmented into plain maxSize windows with no overlap, so no chunk
// ever exceeds maxSize.
func Semantic(text string, maxSize int) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size %d must be positive", domain.ErrInvalidChunkConfig, maxSize)
	}
	if text == "" {
		return []string{}, nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		for _, sentence := range splitSentences(paragraph) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			sentenceLen := uniseg.GraphemeClusterCount(sentence)

			// An over-long sentence gets windowed on its own.
			if sentenceLen > maxSize {
				flush()
				chunks = append(chunks, windows(graphemes(sentence), maxSize, maxSize)...)
				continue
			}

			if currentLen > 0 && currentLen+1+sentenceLen > maxSize {
				flush()
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(sentence)
			currentLen += sentenceLen
		}

		// Paragraphs never share a chunk boundary mid-sentence, but a
		// short next paragraph may still join the current chunk.
	}

	flush()
	return chunks, nil
}

// graphemes returns the grapheme clusters of text in order.
func graphemes(text string) []string {
	clusters := make([]string, 0, len(text))
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	return clusters
}

// windows joins grapheme runs of up to size clusters, advancing by step.
func windows(clusters []string, size, step int) []string {
	var out []string
	for start := 0; start < len(clusters); start += step {
		end := start + size
		if end > len(clusters) {
			end = len(clusters)
		}
		out = append(out, strings.Join(clusters[start:end], ""))
		if end == len(clusters) {
			break
		}
	}
	return out
}

// splitSentences splits text on terminal punctuation (. ! ?) followed by
// whitespace or end of input. The terminator stays with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		g := gr.Str()
		if g != "." && g != "!" && g != "?" {
			continue
		}

		_, end := gr.Positions()
		atEnd := end >= len(text)
		if !atEnd {
			next := text[end]
			if next != ' ' && next != '\n' && next != '\t' {
				continue
			}
		}

		if s := text[start:end]; strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	if start < len(text) {
		if s := text[start:]; strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
