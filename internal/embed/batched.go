package embed

import (
	"context"
	"fmt"
	"log"
)

// DefaultBatchSize bounds how many texts go to the provider per call.
const DefaultBatchSize = 50

// BatchFailure records one failed provider call and the input range it
// covered. Texts in the range received zero vectors.
type BatchFailure struct {
	Start int
	End   int // exclusive
	Err   error
}

// BatchReport summarizes a batched embedding call.
type BatchReport struct {
	Batches  int
	Failures []BatchFailure
}

// Succeeded returns how many of the inputs received real embeddings.
func (r *BatchReport) Succeeded(total int) int {
	failed := 0
	for _, f := range r.Failures {
		failed += f.End - f.Start
	}
	return total - failed
}

// EmbedBatched slices texts into batches of batchSize and embeds them
// sequentially. A failed batch does not abort the call: its texts receive
// zero vectors of the provider's dimension, preserving positional
// alignment with the input, and the failure is recorded on the report.
//
// The returned slice always has len(texts) entries. The only error
// returned is context cancellation.
func EmbedBatched(ctx context.Context, provider Provider, texts []string, batchSize int) ([][]float32, *BatchReport, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	report := &BatchReport{}
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results, report, nil
	}

	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		report.Batches++

		vectors, err := provider.Embed(ctx, texts[start:end])
		if err == nil && len(vectors) != end-start {
			err = &alignmentError{want: end - start, got: len(vectors)}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			log.Printf("Warning: %s batch %d failed, substituting zero vectors: %v", provider.Name(), report.Batches, err)
			report.Failures = append(report.Failures, BatchFailure{Start: start, End: end, Err: err})
			for i := start; i < end; i++ {
				results[i] = make([]float32, provider.Dimensions())
			}
			continue
		}

		copy(results[start:end], vectors)
	}

	return results, report, nil
}

type alignmentError struct {
	want, got int
}

func (e *alignmentError) Error() string {
	return fmt.Sprintf("provider returned %d embeddings for %d inputs", e.got, e.want)
}
