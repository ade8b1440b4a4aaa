package ports

import (
	"context"

	"geodiff/domain/geo"
	"geodiff/domain/run"
)

// DatasetFetcher retrieves a dataset by accession and returns the local path
// of the SOFT file. Implementations must serve a valid cached copy without
// re-downloading, and must honor context cancellation during the fetch.
type DatasetFetcher interface {
	Fetch(ctx context.Context, accession geo.Accession) (string, error)
}

// RunRecorder persists pipeline run manifests for auditability.
type RunRecorder interface {
	RecordRun(ctx context.Context, m *run.Manifest) error
}
