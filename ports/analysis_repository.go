package ports

import (
	"context"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
)

// AnalysisRepository defines the interface for persisted funnel analyses
type AnalysisRepository interface {
	// Save stores a completed analysis with its parameters
	Save(ctx context.Context, params funnel.Params, result *funnel.Result) error

	// GetByID retrieves one analysis result
	GetByID(ctx context.Context, id core.AnalysisID) (*funnel.Result, error)

	// List returns recent analyses, newest first
	List(ctx context.Context, limit, offset int) ([]*funnel.Result, error)

	// Delete removes an analysis and its groups
	Delete(ctx context.Context, id core.AnalysisID) error
}
