// Package chunker splits extracted document text into fixed-size
// overlapping windows, the atomic retrieval unit of the pipeline.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"docusage/internal/models"
)

// ErrInvalidChunking is returned when the requested window parameters can
// never advance through the text.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Chunk splits text into windows of chunkSize bytes that overlap by exactly
// overlap bytes. Each window is trimmed of surrounding whitespace;
// whitespace-only windows are dropped. chunkSize must be greater than
// overlap, otherwise the window would never advance and the call fails fast.
func Chunk(text string, chunkSize, overlap int) ([]models.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunking, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidChunking, overlap)
	}
	if chunkSize <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must be greater than overlap %d", ErrInvalidChunking, chunkSize, overlap)
	}

	var chunks []models.Chunk
	step := chunkSize - overlap
	index := 0
	for pos := 0; pos < len(text); pos += step {
		end := min(pos+chunkSize, len(text))
		window := text[pos:end]
		afterLead := strings.TrimLeftFunc(window, unicode.IsSpace)
		piece := strings.TrimRightFunc(afterLead, unicode.IsSpace)
		if piece == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Text:   piece,
			Offset: pos + len(window) - len(afterLead),
			Index:  index,
		})
		index++
	}
	return chunks, nil
}
