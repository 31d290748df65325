// Package oracle wraps the two places the scheduler consults an LLM: free
// text function descriptor extraction (C3) and candidate ranking (C6's
// oracle ranking mode). Both go through the Oracle interface so a
// deterministic stub can stand in whenever no API key is configured.
package oracle

import (
	"context"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// RankRequest is the input to RankCandidates: a function's metadata plus
// its scored candidates, already computed by C5.
type RankRequest struct {
	Function   model.FunctionMetadata
	Candidates []model.CandidateScore
}

// RankResult is the oracle's proposed ordering, expressed as a permutation
// of indices into RankRequest.Candidates, most-preferred first.
type RankResult struct {
	Order     []int    `json:"order"`
	Rationale []string `json:"rationale"`
}

// Oracle is implemented by the Gemini-backed client and by a deterministic
// stub used when GEMINI_API_KEY is unset.
type Oracle interface {
	// ExtractMetadata normalizes a free-text function descriptor (C3).
	ExtractMetadata(ctx context.Context, text string) (model.NormalizationResult, error)
	// RankCandidates proposes an ordering over req.Candidates (C6 oracle mode).
	RankCandidates(ctx context.Context, req RankRequest) (RankResult, error)
}
