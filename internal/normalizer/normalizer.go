// Package normalizer implements C3: turning registry descriptors (some
// already structured, some free text) into validated FunctionMetadata.
package normalizer

import (
	"context"
	"fmt"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/oracle"
	"github.com/iosl-sustainability/carbon-scheduler/internal/registry"
	"github.com/iosl-sustainability/carbon-scheduler/internal/retryutil"
)

// Normalizer resolves a registry.Descriptor into model.FunctionMetadata,
// consulting the oracle only for free-text descriptors.
type Normalizer struct {
	Oracle oracle.Oracle
}

func New(o oracle.Oracle) *Normalizer {
	return &Normalizer{Oracle: o}
}

// LowConfidenceError is returned when an oracle extraction falls below the
// acceptance threshold (§4.2); the caller should treat the function as
// FAILED for this cycle rather than schedule it on a guess.
type LowConfidenceError struct {
	Confidence float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("normalizer: extraction confidence %.2f below minimum %.2f", e.Confidence, model.MinConfidence)
}

// Normalize dispatches on descriptor kind: structured descriptors pass
// through untouched, free-text descriptors are extracted via the oracle
// with the shared retry policy and rejected below MinConfidence.
func (n *Normalizer) Normalize(ctx context.Context, d registry.Descriptor) (model.FunctionMetadata, error) {
	switch d.Kind {
	case registry.KindStructured:
		return d.Metadata, nil
	case registry.KindFreeText:
		var result model.NormalizationResult
		err := retryutil.Do(ctx, retryutil.Default, func(ctx context.Context) error {
			r, err := n.Oracle.ExtractMetadata(ctx, d.Text)
			if err != nil {
				return oracleCallError{err}
			}
			result = r
			return nil
		})
		if err != nil {
			return model.FunctionMetadata{}, fmt.Errorf("normalizer: extraction failed: %w", err)
		}
		if result.Confidence < model.MinConfidence {
			return model.FunctionMetadata{}, &LowConfidenceError{Confidence: result.Confidence}
		}
		return result.Metadata, nil
	default:
		return model.FunctionMetadata{}, fmt.Errorf("normalizer: unknown descriptor kind %q", d.Kind)
	}
}

type oracleCallError struct{ err error }

func (e oracleCallError) Error() string { return e.err.Error() }
func (e oracleCallError) Unwrap() error { return e.err }
func (e oracleCallError) Temporary() bool {
	type temporary interface{ Temporary() bool }
	if t, ok := e.err.(temporary); ok {
		return t.Temporary()
	}
	return true
}
