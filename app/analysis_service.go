package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
	analysis "gofunnel/internal/analysis/funnel"
	"gofunnel/ports"

	"golang.org/x/sync/semaphore"
)

// AnalysisService orchestrates funnel analyses: it resolves the input series,
// runs the estimation pipeline and persists the result
type AnalysisService struct {
	reader     ports.ObservationReader
	repository ports.AnalysisRepository

	// Bounds concurrent pipeline runs in RunBatch
	sem *semaphore.Weighted
}

// AnalysisRequest defines inputs for one funnel analysis. Observations come
// either inline as three parallel series or from a file source; inline series
// win when both are present.
type AnalysisRequest struct {
	Numerator   []float64       `json:"numerator,omitempty"`
	Denominator []float64       `json:"denominator,omitempty"`
	Groups      []core.GroupKey `json:"groups,omitempty"`
	Source      string          `json:"source,omitempty"`

	Params funnel.Params `json:"params"`
}

// BatchItem pairs one request's result with its error, in request order
type BatchItem struct {
	Result *funnel.Result
	Err    error
}

// NewAnalysisService creates an analysis service. maxConcurrency bounds how
// many batch requests run at once; values below 1 fall back to 1.
func NewAnalysisService(reader ports.ObservationReader, repository ports.AnalysisRepository, maxConcurrency int64) *AnalysisService {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &AnalysisService{
		reader:     reader,
		repository: repository,
		sem:        semaphore.NewWeighted(maxConcurrency),
	}
}

// Run executes one analysis end to end and persists the result
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*funnel.Result, error) {
	startTime := time.Now()

	numerator, denominator, groups, err := s.resolveInput(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Printf("[AnalysisService] running %s analysis over %d rows", req.Params.DataType, len(numerator))

	result, err := analysis.Run(numerator, denominator, groups, req.Params)
	if err != nil {
		return nil, err
	}

	if s.repository != nil {
		if err := s.repository.Save(ctx, req.Params, result); err != nil {
			return nil, fmt.Errorf("failed to persist analysis: %w", err)
		}
	}

	log.Printf("[AnalysisService] analysis %s complete: %d groups, %d outliers, phi=%.4f (%dms)",
		result.AnalysisID, len(result.Groups), len(result.Outliers), result.Phi,
		time.Since(startTime).Milliseconds())

	return result, nil
}

// RunBatch executes many requests concurrently under the service's weighted
// semaphore. The returned slice is in request order; per-request failures are
// reported in their BatchItem, not returned as the batch error. Cancellation
// fails the requests still waiting for a slot; the method always waits for
// every launched worker before returning, so the slice is never shared with
// a live writer.
func (s *AnalysisService) RunBatch(ctx context.Context, reqs []AnalysisRequest) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	var wg sync.WaitGroup

	for i := range reqs {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting for a slot; fail the rest
			for j := i; j < len(reqs); j++ {
				items[j] = BatchItem{Err: err}
			}
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer s.sem.Release(1)
			result, err := s.Run(ctx, reqs[idx])
			items[idx] = BatchItem{Result: result, Err: err}
		}(i)
	}

	wg.Wait()
	return items, ctx.Err()
}

// GetAnalysis retrieves a persisted analysis by ID
func (s *AnalysisService) GetAnalysis(ctx context.Context, id core.AnalysisID) (*funnel.Result, error) {
	if s.repository == nil {
		return nil, fmt.Errorf("%w: no repository configured", core.ErrAnalysisNotFound)
	}
	return s.repository.GetByID(ctx, id)
}

// ListAnalyses returns recent persisted analyses
func (s *AnalysisService) ListAnalyses(ctx context.Context, limit, offset int) ([]*funnel.Result, error) {
	if s.repository == nil {
		return []*funnel.Result{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repository.List(ctx, limit, offset)
}

// DeleteAnalysis removes a persisted analysis
func (s *AnalysisService) DeleteAnalysis(ctx context.Context, id core.AnalysisID) error {
	if s.repository == nil {
		return fmt.Errorf("%w: no repository configured", core.ErrAnalysisNotFound)
	}
	return s.repository.Delete(ctx, id)
}

// resolveInput returns the three parallel series, reading from the file
// source when no inline series were supplied
func (s *AnalysisService) resolveInput(ctx context.Context, req AnalysisRequest) ([]float64, []float64, []core.GroupKey, error) {
	if len(req.Numerator) > 0 {
		return req.Numerator, req.Denominator, req.Groups, nil
	}

	if req.Source == "" {
		return nil, nil, nil, core.NewInputError("request", "no inline series and no source file")
	}
	if s.reader == nil {
		return nil, nil, nil, core.NewInputError("request", "source file given but no reader configured")
	}

	obs, err := s.reader.Read(ctx, req.Source)
	if err != nil {
		return nil, nil, nil, err
	}

	numerator := make([]float64, len(obs))
	denominator := make([]float64, len(obs))
	groups := make([]core.GroupKey, len(obs))
	for i, o := range obs {
		numerator[i] = o.Numerator
		denominator[i] = o.Denominator
		groups[i] = o.Group
	}
	return numerator, denominator, groups, nil
}
