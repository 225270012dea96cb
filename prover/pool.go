package prover

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/log"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of proofs generated concurrently.
type Pool struct {
	sem     *semaphore.Weighted
	workers int
}

// NewPool returns a pool with the given number of workers. Zero or negative
// values use runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), workers: workers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Prove waits for a free worker and runs backend.Prove. Cancelling ctx while
// waiting returns ErrProofCancelled without calling the backend, and a proof
// that completes after ctx is done is discarded. Backend errors are wrapped
// with ErrProofGeneration when they are not already.
func (p *Pool) Prove(ctx context.Context, backend Backend, inputs circuits.NamedInputs) (*Proof, error) {
	queueWaiting.Inc()
	err := p.sem.Acquire(ctx, 1)
	queueWaiting.Dec()
	if err != nil {
		proofsTotal.WithLabelValues(resultCancelled).Inc()
		return nil, cancelled(err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	proof, err := backend.Prove(ctx, inputs)
	switch {
	case errors.Is(err, ErrProofCancelled):
		proofsTotal.WithLabelValues(resultCancelled).Inc()
		return nil, err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		proofsTotal.WithLabelValues(resultCancelled).Inc()
		return nil, cancelled(err)
	case errors.Is(err, ErrProofGeneration):
		proofsTotal.WithLabelValues(resultError).Inc()
		return nil, err
	case err != nil:
		proofsTotal.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("%w: %w", ErrProofGeneration, err)
	case proof == nil:
		proofsTotal.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("%w: backend returned no proof", ErrProofGeneration)
	}
	if err := ctx.Err(); err != nil {
		proofsTotal.WithLabelValues(resultCancelled).Inc()
		log.Debugw("discarding ballot proof generated after cancellation", "id", proof.ID.String())
		return nil, cancelled(err)
	}
	elapsed := time.Since(start)
	proofDuration.Observe(elapsed.Seconds())
	proofsTotal.WithLabelValues(resultSuccess).Inc()
	log.Debugw("ballot proof generated", "id", proof.ID.String(), "took", elapsed.String())
	return proof, nil
}
