package deploy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// DefaultTopRegions is the number of top-ranked regions the orchestrator
// realizes after a schedule is produced (§4.7).
const DefaultTopRegions = 3

// Outcome records one region's deployment attempt, for telemetry.
type Outcome struct {
	Region  string
	Skipped bool
	Failed  bool
	Err     error
}

// Orchestrate realizes the top-M ranked regions of sched: for each it checks
// the deployer's current status, deploys unless the function is ACTIVE there
// and the code hash recorded in sched.Deployment for that region matches the
// desired hash, and records the resulting URL into sched.Deployment. The
// hash compared is the schedule's own record; the deployer's status reply
// carries no code hash. A per-region failure is non-fatal and leaves any
// prior URL untouched.
func Orchestrate(ctx context.Context, client *Client, fn model.FunctionMetadata, sched *model.Schedule, topM int) []Outcome {
	if topM <= 0 {
		topM = DefaultTopRegions
	}
	if sched.Deployment == nil {
		sched.Deployment = make(map[string]model.DeploymentInfo)
	}

	seen := map[string]bool{}
	var regions []string
	for _, r := range sched.Recommendations {
		if r.Priority > topM || seen[r.Region] {
			continue
		}
		seen[r.Region] = true
		regions = append(regions, r.Region)
	}

	desiredHash := CodeHash(fn.Code, fn.Requirements)

	outcomes := make([]Outcome, 0, len(regions))
	for _, region := range regions {
		status, err := client.GetStatus(ctx, fn.FunctionID, region)
		if err != nil {
			outcomes = append(outcomes, Outcome{Region: region, Failed: true, Err: err})
			continue
		}
		prior := sched.Deployment[region]
		if status == StatusActive && prior.CodeHash == desiredHash {
			outcomes = append(outcomes, Outcome{Region: region, Skipped: true})
			continue
		}
		resp, err := client.Deploy(ctx, DeployRequest{
			FunctionName:   fn.FunctionID,
			Code:           fn.Code,
			Region:         region,
			MemoryMB:       fn.MemoryMB,
			CPU:            fn.VCPUs,
			TimeoutSeconds: int(fn.RuntimeMS / 1000),
			Requirements:   fn.Requirements,
			CodeHash:       desiredHash,
		})
		if err != nil {
			// keep whatever URL the schedule already had for this region.
			outcomes = append(outcomes, Outcome{Region: region, Failed: true, Err: err})
			continue
		}
		sched.Deployment[region] = model.DeploymentInfo{
			URL:           resp.FunctionURL,
			CodeHash:      desiredHash,
			DeployedAtUTC: time.Now().UTC(),
		}
		outcomes = append(outcomes, Outcome{Region: region})
	}
	return outcomes
}

// CodeHash computes the desired code hash from the normalized code and the
// canonical (order-preserved) dependency list (§4.7 step 2).
func CodeHash(code string, requirements []string) string {
	h := sha256.New()
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(requirements, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
