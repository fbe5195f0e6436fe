package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/faultline/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the chunk size used when none is configured
const DefaultConcurrency = 6

// Settler turns a claim into a terminal outcome and never fails
type Settler interface {
	Settle(ctx context.Context, claim model.Claim) model.VerificationOutcome
}

// Scheduler verifies claims in consecutive chunks. Every claim of a chunk
// starts together and the next chunk starts only after all of them have
// settled, so at most concurrency verifications are in flight.
type Scheduler struct {
	settler     Settler
	concurrency int
	logger      *slog.Logger
}

// NewScheduler creates a scheduler over settler
func NewScheduler(settler Settler, concurrency int, logger *slog.Logger) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		settler:     settler,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ChunkFunc receives the outcomes of one settled chunk. offset is the
// index of the chunk's first claim in the scheduled list.
type ChunkFunc func(offset int, settled []model.VerificationOutcome)

// Run settles every claim and returns outcomes aligned with claims.
// Once ctx is done, claims not yet started settle as cancelled.
func (s *Scheduler) Run(ctx context.Context, claims []model.Claim) []model.VerificationOutcome {
	return s.RunChunks(ctx, claims, nil)
}

// RunChunks is Run with onSettled called after every chunk, on the calling
// goroutine. Every outcome carries the id of the claim it was settled for.
func (s *Scheduler) RunChunks(ctx context.Context, claims []model.Claim, onSettled ChunkFunc) []model.VerificationOutcome {
	outcomes := make([]model.VerificationOutcome, len(claims))

	for start, chunk := range Chunk(claims, s.concurrency) {
		offset := start * s.concurrency

		if err := ctx.Err(); err != nil {
			for i := offset; i < len(claims); i++ {
				outcomes[i] = model.Unverified(claims[i].ID, fmt.Sprintf("Verification cancelled: %v", err))
			}
			s.logger.Info("verification cancelled", "remaining", len(claims)-offset)
			if onSettled != nil {
				onSettled(offset, outcomes[offset:])
			}
			return outcomes
		}

		began := time.Now()
		var g errgroup.Group
		for i, claim := range chunk {
			slot := offset + i
			g.Go(func() error {
				outcome := s.settler.Settle(ctx, claim)
				outcome.ClaimID = claim.ID
				outcomes[slot] = outcome
				return nil
			})
		}
		_ = g.Wait()
		chunkDuration.Observe(time.Since(began).Seconds())

		s.logger.Debug("chunk settled", "offset", offset, "size", len(chunk))
		if onSettled != nil {
			onSettled(offset, outcomes[offset:offset+len(chunk)])
		}
	}

	return outcomes
}

// Chunk splits claims into consecutive slices of at most size
func Chunk(claims []model.Claim, size int) [][]model.Claim {
	if size <= 0 {
		size = DefaultConcurrency
	}
	var chunks [][]model.Claim
	for i := 0; i < len(claims); i += size {
		end := i + size
		if end > len(claims) {
			end = len(claims)
		}
		chunks = append(chunks, claims[i:end])
	}
	return chunks
}
