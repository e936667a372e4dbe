// Package batch splits large analysis requests into fixed-size chunks.
package batch

import (
	"context"
	"fmt"
	"math"

	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
)

// DefaultBatchSize is the chunk size used by the research pipeline.
const DefaultBatchSize = 20

// ProgressFunc receives the percentage of symbols processed so far (0..100).
type ProgressFunc func(percent int)

// ChunkError reports which chunk failed. It unwraps to the provider error.
type ChunkError struct {
	Index  int
	Chunks int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("analysis chunk %d/%d failed: %v", e.Index+1, e.Chunks, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Chunk partitions symbols into contiguous slices of at most size elements.
func Chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}

// AnalyzeBatched runs the analysis provider over symbols one chunk at a time and merges
// the returned rows in chunk order. Chunks are never sent concurrently. onProgress (may be
// nil) is called after each successful chunk. The first chunk error aborts the whole call
// and no partial result is returned.
func AnalyzeBatched(
	ctx context.Context,
	provider interfaces.AnalysisProvider,
	industry string,
	symbols []string,
	batchSize int,
	weights map[string]float64,
	filters *models.ScreenerFilters,
	onProgress ProgressFunc,
) (*models.AnalysisResult, error) {
	merged := &models.AnalysisResult{
		Industry: industry,
		Symbols:  make([]models.AnalysisRow, 0, len(symbols)),
	}
	if len(symbols) == 0 {
		if onProgress != nil {
			onProgress(100)
		}
		return merged, nil
	}

	chunks := Chunk(symbols, batchSize)
	processed := 0

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, &ChunkError{Index: i, Chunks: len(chunks), Err: err}
		}

		res, err := provider.AnalyzeIndustry(ctx, models.AnalysisRequest{
			Industry: industry,
			Symbols:  chunk,
			Weights:  weights,
			Filters:  filters,
		})
		if err != nil {
			return nil, &ChunkError{Index: i, Chunks: len(chunks), Err: err}
		}
		if res != nil {
			merged.Symbols = append(merged.Symbols, res.Symbols...)
		}

		processed += len(chunk)
		if onProgress != nil {
			onProgress(percent(processed, len(symbols)))
		}
	}

	return merged, nil
}

func percent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}
