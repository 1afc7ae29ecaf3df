package ports

import (
	"context"

	"gofunnel/domain/funnel"
)

// ObservationReader loads raw observations from an external source
// (spreadsheet, CSV export, database extract) into the pipeline's input
// shape. Readers validate row shape only; statistical validation happens
// at analysis time.
type ObservationReader interface {
	Read(ctx context.Context, source string) ([]funnel.RawObservation, error)
}
