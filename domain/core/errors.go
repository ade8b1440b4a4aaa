package core

import (
	"errors"
	"fmt"
)

// Pipeline errors - centralized error definitions.
// Every stage failure is fatal: nothing is retried internally and no
// partial results are returned past a failed stage.
var (
	// Loader errors
	ErrDownload = errors.New("dataset download failed")

	// Preprocessor errors
	ErrSchema = errors.New("dataset schema invalid")
	ErrLabel  = errors.New("group label normalization failed")

	// Filter / engine errors
	ErrEmptyInput     = errors.New("no genes left after filtering")
	ErrSingularDesign = errors.New("design matrix is rank deficient")
)

// Error constructors with context

func NewDownloadError(accession string, err error) error {
	return fmt.Errorf("%w: accession %s: %v", ErrDownload, accession, err)
}

func NewSchemaError(stage string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrSchema, stage, reason)
}

func NewDimensionError(stage string, what string, got, want int) error {
	return fmt.Errorf("%w: %s: %s count %d does not match %d", ErrSchema, stage, what, got, want)
}

func NewLabelError(labels []string) error {
	return fmt.Errorf("%w: expected exactly 2 groups, got %d %v", ErrLabel, len(labels), labels)
}

func NewEmptyInputError(stage string, minSamples int) error {
	return fmt.Errorf("%w: %s: no gene exceeds the global median in at least %d samples", ErrEmptyInput, stage, minSamples)
}

func NewSingularDesignError(column string, count int) error {
	return fmt.Errorf("%w: column %q has %d samples", ErrSingularDesign, column, count)
}

// Error checking helpers

func IsDownloadError(err error) bool {
	return errors.Is(err, ErrDownload)
}

func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsLabelError(err error) bool {
	return errors.Is(err, ErrLabel)
}

func IsEmptyInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}

func IsSingularDesignError(err error) bool {
	return errors.Is(err, ErrSingularDesign)
}

func IsFatalInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrSingularDesign)
}
