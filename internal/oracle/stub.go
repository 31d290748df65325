package oracle

import (
	"context"
	"sort"
	"strings"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// DeterministicStub is used whenever GEMINI_API_KEY is unset, so /health
// never reports a hard dependency the process cannot itself verify. It
// makes conservative, rule-based guesses for extraction and simply mirrors
// the composite-score ordering already computed by C5 for ranking (i.e. it
// is a legitimate no-op oracle, not a placeholder that must never run).
type DeterministicStub struct{}

func NewDeterministicStub() *DeterministicStub { return &DeterministicStub{} }

// ExtractMetadata makes conservative assumptions: small memory footprint,
// and no GPU unless the text mentions "gpu" or "cuda". Confidence is always
// 0.4, below model.MinConfidence, so the normalizer rejects every stub
// extraction.
func (s *DeterministicStub) ExtractMetadata(ctx context.Context, text string) (model.NormalizationResult, error) {
	lower := strings.ToLower(text)
	meta := model.FunctionMetadata{
		RuntimeMS:   1000,
		MemoryMB:    256,
		VCPUs:       0.5,
		GPURequired: strings.Contains(lower, "gpu") || strings.Contains(lower, "cuda"),
	}
	confidence := 0.4
	var assumptions []string
	assumptions = append(assumptions, "no LLM oracle configured: applied conservative defaults")
	return model.NormalizationResult{
		Metadata:    meta,
		Confidence:  confidence,
		Assumptions: assumptions,
	}, nil
}

// RankCandidates returns the candidates already sorted by ascending
// Composite score (lower is better, per §4.4), so oracle mode degrades
// gracefully to deterministic mode's own ordering when unconfigured.
func (s *DeterministicStub) RankCandidates(ctx context.Context, req RankRequest) (RankResult, error) {
	order := make([]int, len(req.Candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return req.Candidates[order[i]].Composite < req.Candidates[order[j]].Composite
	})
	return RankResult{Order: order, Rationale: []string{"deterministic stub: sorted by composite score"}}, nil
}
