package oracle

import (
	"fmt"
	"strings"
)

// extractionPrompt and rankingPrompt build the text prompts sent to Gemini:
// a short role statement, the input, and an explicit instruction to answer
// with JSON only matching a described shape.
func extractionPrompt(text string) string {
	return fmt.Sprintf(`You are extracting structured serverless function metadata from a
free-text description. Read the description and respond with a single JSON
object of the shape:
{"metadata": {"function_id": string, "runtime_ms": number, "memory_mb": number,
"vcpus": number, "gpu_required": boolean, "allowed_regions": [string],
"weight_carbon": number, "weight_cost": number, "weight_latency": number,
"deadline_hours": number}, "confidence": number between 0 and 1,
"assumptions": [string], "warnings": [string]}.
If a field cannot be inferred, make a conservative assumption and record it
in "assumptions". Respond with JSON only, no commentary.

Description:
%s`, text)
}

func rankingPrompt(req RankRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are ranking (region, hour) deployment candidates for function %q by\n", req.Function.FunctionID)
	fmt.Fprintf(&b, "overall desirability, weighting carbon %.2f, cost %.2f, latency %.2f.\n", req.Function.WeightCarbon, req.Function.WeightCost, req.Function.WeightLatency)
	b.WriteString("Candidates (index: region, hour, energy kWh, emissions gCO2, transfer cost USD, composite score):\n")
	for i, c := range req.Candidates {
		fmt.Fprintf(&b, "%d: %s, %s, %.4f, %.2f, %.4f, %.4f\n", i, c.Region, c.HourStartUTC.Format("2006-01-02T15:04Z"), c.EnergyKWh, c.EmissionsG, c.TransferCostUSD, c.Composite)
	}
	b.WriteString(`Respond with a single JSON object: {"order": [index, ...], "rationale": [string, ...]}` + "\n")
	b.WriteString("where order is a permutation of all candidate indices, most preferred first. JSON only.\n")
	return b.String()
}
