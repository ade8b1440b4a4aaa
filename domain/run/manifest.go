package run

import (
	"time"

	"github.com/google/uuid"

	"geodiff/domain/diffexpr"
	"geodiff/domain/geo"
)

// Manifest captures the complete specification and outcome of one pipeline
// run, for the cache ledger and the rendered report.
type Manifest struct {
	RunID     string        `json:"run_id" db:"run_id"`
	Accession geo.Accession `json:"accession" db:"accession"`

	// Parameters
	MinSamples int     `json:"min_samples" db:"min_samples"`
	PCutoff    float64 `json:"p_cutoff" db:"p_cutoff"`
	LFCCutoff  float64 `json:"lfc_cutoff" db:"lfc_cutoff"`

	// Dimensions
	GenesTotal int `json:"genes_total" db:"genes_total"`
	GenesKept  int `json:"genes_kept" db:"genes_kept"`
	Samples    int `json:"samples" db:"samples"`

	// Engine diagnostics
	Contrast    string  `json:"contrast" db:"contrast"`
	WeightIters int     `json:"weight_iters" db:"weight_iters"`
	DFPrior     float64 `json:"df_prior" db:"df_prior"`
	S2Prior     float64 `json:"s2_prior" db:"s2_prior"`

	// Summary counts at the run's cutoffs
	Up        int `json:"up" db:"up"`
	Down      int `json:"down" db:"down"`
	Unchanged int `json:"unchanged" db:"unchanged"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// New creates a manifest for a starting run.
func New(accession geo.Accession, minSamples int, cut diffexpr.Cutoffs) *Manifest {
	return &Manifest{
		RunID:      uuid.NewString(),
		Accession:  accession,
		MinSamples: minSamples,
		PCutoff:    cut.P,
		LFCCutoff:  cut.LogFC,
		StartedAt:  time.Now().UTC(),
	}
}

// Finish stamps the completion time and returns the manifest for chaining.
func (m *Manifest) Finish() *Manifest {
	m.FinishedAt = time.Now().UTC()
	return m
}

// Duration returns the wall-clock runtime of the run.
func (m *Manifest) Duration() time.Duration {
	return m.FinishedAt.Sub(m.StartedAt)
}
