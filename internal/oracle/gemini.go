package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/retryutil"
)

const geminiModel = "gemini-2.5-flash"

// GeminiOracle calls the Gemini API for both extraction and ranking: send
// a text prompt, strip a ```json code fence if the model wrapped its
// answer in one, then json.Unmarshal the remainder.
type GeminiOracle struct {
	client *genai.Client
}

func NewGeminiOracle(client *genai.Client) *GeminiOracle {
	return &GeminiOracle{client: client}
}

func (g *GeminiOracle) generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retryutil.Do(ctx, retryutil.Default, func(ctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(ctx, geminiModel, genai.Text(prompt), nil)
		if err != nil {
			return remoteError{err}
		}
		text, err = resp.Text()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("oracle: gemini generate: %w", err)
	}
	return stripJSONFence(text), nil
}

// stripJSONFence removes a leading/trailing ```json ... ``` or ``` ... ```
// fence, tolerating chat-style model output that wraps its JSON answer.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func (g *GeminiOracle) ExtractMetadata(ctx context.Context, text string) (model.NormalizationResult, error) {
	prompt := extractionPrompt(text)
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return model.NormalizationResult{}, err
	}
	if err := validateAgainst(normalizationSchema, []byte(raw)); err != nil {
		return model.NormalizationResult{}, err
	}
	var result model.NormalizationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return model.NormalizationResult{}, fmt.Errorf("oracle: decode extraction response: %w", err)
	}
	return result, nil
}

func (g *GeminiOracle) RankCandidates(ctx context.Context, req RankRequest) (RankResult, error) {
	prompt := rankingPrompt(req)
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return RankResult{}, err
	}
	if err := validateAgainst(rankSchema, []byte(raw)); err != nil {
		return RankResult{}, err
	}
	var result RankResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return RankResult{}, fmt.Errorf("oracle: decode ranking response: %w", err)
	}
	if !validRankPermutation(result.Order, len(req.Candidates)) {
		return RankResult{}, fmt.Errorf("oracle: ranking response is not a permutation of %d candidates", len(req.Candidates))
	}
	return result, nil
}

type remoteError struct{ err error }

func (e remoteError) Error() string   { return e.err.Error() }
func (e remoteError) Unwrap() error   { return e.err }
func (e remoteError) Temporary() bool { return true }
