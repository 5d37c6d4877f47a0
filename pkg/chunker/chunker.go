package chunker

import (
	"strings"

	"ai-platform-be/internal/pkg/apperror"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	MetaTotalChunks = "total_chunks"
)

// Chunk is a window of a document's words. It has no lifecycle of its own
// once it has been upserted as a vector point.
type Chunk struct {
	Content      string                 `json:"content"`
	DocumentID   string                 `json:"document_id"`
	DocumentName string                 `json:"document_name"`
	ChunkIndex   int                    `json:"chunk_index"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// Split cuts text into windows of size words that advance by size-overlap words.
// Same input always yields the same chunks.
func Split(text, documentID, documentName string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, apperror.Newf(apperror.ErrValidation, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, apperror.Newf(apperror.ErrValidation, "chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	words := strings.Fields(text)

	if len(words) <= size {
		return []Chunk{{
			Content:      strings.TrimSpace(text),
			DocumentID:   documentID,
			DocumentName: documentName,
			ChunkIndex:   0,
			Metadata:     map[string]interface{}{MetaTotalChunks: 1},
		}}, nil
	}

	var chunks []Chunk
	step := size - overlap
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Content:      strings.Join(words[start:end], " "),
			DocumentID:   documentID,
			DocumentName: documentName,
			ChunkIndex:   len(chunks),
			Metadata:     map[string]interface{}{},
		})
	}

	// total is only known once the input is exhausted
	for i := range chunks {
		chunks[i].Metadata[MetaTotalChunks] = len(chunks)
	}

	return chunks, nil
}

// CountWords is the word count used for token_count bookkeeping.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
