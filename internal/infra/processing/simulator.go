package processing

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
)

// ErrExtractionFailed is returned when the simulated extraction fails.
var ErrExtractionFailed = errors.New("could not extract financial data from document")

// Simulator stands in for the PDF extraction pipeline: it waits, then
// reports a random number of extracted metrics (20-69).
type Simulator struct {
	Delay time.Duration
	// FailureRate is the probability in [0,1] that a run fails.
	FailureRate float64

	mu         sync.Mutex
	randSource *rand.Rand
}

func NewSimulator(delay time.Duration) *Simulator {
	// Create a dedicated random source to avoid contention
	src := rand.NewSource(time.Now().UnixNano())
	return &Simulator{Delay: delay, randSource: rand.New(src)}
}

func NewSimulatorWithSeed(delay time.Duration, seed int64) *Simulator {
	return &Simulator{Delay: delay, randSource: rand.New(rand.NewSource(seed))}
}

func (s *Simulator) Process(ctx context.Context, d *documents.Document) (documents.ExtractionResult, error) {
	if d == nil {
		return documents.ExtractionResult{}, documents.ErrNotFound
	}
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return documents.ExtractionResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	fail := s.randSource.Float64() < s.FailureRate
	n := 20 + s.randSource.Intn(50)
	s.mu.Unlock()

	if fail {
		return documents.ExtractionResult{}, ErrExtractionFailed
	}
	return documents.ExtractionResult{ExtractedMetrics: n}, nil
}

var _ documents.Processor = (*Simulator)(nil)
