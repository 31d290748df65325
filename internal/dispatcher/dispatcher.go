// Package dispatcher implements C10: choosing whether to forward a function
// invocation now or defer it to its best-ranked future slot.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/lithammer/shortuuid"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	cachepkg "github.com/iosl-sustainability/carbon-scheduler/internal/cache"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/queue"
)

// ScheduleTTL and IdempotencyTTL are the defaults named in §4.9.
const (
	ScheduleTTL    = 60 * time.Second
	IdempotencyTTL = 24 * time.Hour
)

// Decision describes what the dispatcher chose to do with one request.
type Decision struct {
	Forwarded    bool      `json:"forwarded"`
	Deferred     bool      `json:"deferred"`
	Region       string    `json:"region"`
	TargetURL    string    `json:"target_url,omitempty"`
	HourStartUTC time.Time `json:"hour_start_utc"`
	Reason       string    `json:"reason"`
}

// Dispatcher loads schedules from the bucket, caching them with ScheduleTTL,
// and decides whether to forward immediately or enqueue for later.
type Dispatcher struct {
	Store          bucket.Store
	Queue          queue.Queue
	ScheduleCache  *cachepkg.Cache
	IdemCache      *cachepkg.Cache
}

func New(store bucket.Store, q queue.Queue) *Dispatcher {
	return &Dispatcher{
		Store:         store,
		Queue:         q,
		ScheduleCache: cachepkg.New(ScheduleTTL, ScheduleTTL, 4096),
		IdemCache:     cachepkg.New(IdempotencyTTL, time.Hour, 4096),
	}
}

// ErrNoViableSlot is returned when none of the ranked candidates for the
// function's deadline window has a deployed URL in sched.Deployment.
var ErrNoViableSlot = errors.New("dispatcher: no viable slot within deadline")

func (d *Dispatcher) loadSchedule(ctx context.Context, functionID string) (model.Schedule, error) {
	if cached, ok := d.ScheduleCache.Get(functionID); ok {
		return cached.(model.Schedule), nil
	}
	raw, err := d.Store.Read(ctx, fmt.Sprintf("schedule_%s.json", functionID))
	if err != nil {
		return model.Schedule{}, fmt.Errorf("dispatcher: load schedule: %w", err)
	}
	var sched model.Schedule
	if err := json.Unmarshal(raw, &sched); err != nil {
		return model.Schedule{}, fmt.Errorf("dispatcher: decode schedule: %w", err)
	}
	d.ScheduleCache.Set(functionID, sched, ScheduleTTL)
	return sched, nil
}

// rankedCandidates orders recommendations by desirability for a dispatch
// decision: recommendations whose hour falls within [now-floor, deadline]
// sorted by ascending Priority, since every one of them fits the window and
// priority is the planner's notion of "best". deadline.IsZero() means "now":
// every recommendation is a candidate, ordered by priority alone. When
// nothing fits the window, the chronologically earliest recommendation is
// returned alone, clipped to the deadline, as a last resort (§4.9).
func rankedCandidates(sched model.Schedule, now, deadline time.Time) []model.Recommendation {
	if len(sched.Recommendations) == 0 {
		return nil
	}
	byHour := make([]model.Recommendation, len(sched.Recommendations))
	copy(byHour, sched.Recommendations)
	sort.Slice(byHour, func(i, j int) bool { return byHour[i].HourStartUTC.Before(byHour[j].HourStartUTC) })

	byPriority := make([]model.Recommendation, len(sched.Recommendations))
	copy(byPriority, sched.Recommendations)
	sort.Slice(byPriority, func(i, j int) bool { return byPriority[i].Priority < byPriority[j].Priority })

	if deadline.IsZero() {
		return byPriority
	}

	nowFloor := now.Truncate(time.Hour)
	var withinWindow []model.Recommendation
	for _, r := range byPriority {
		if !r.HourStartUTC.Before(nowFloor) && !r.HourStartUTC.After(deadline) {
			withinWindow = append(withinWindow, r)
		}
	}
	if len(withinWindow) > 0 {
		return withinWindow
	}

	fallback := byHour[0]
	if fallback.HourStartUTC.After(deadline) {
		fallback.HourStartUTC = deadline
	}
	return []model.Recommendation{fallback}
}

// FindOptimalSlot returns the single best recommendation per rankedCandidates.
func FindOptimalSlot(sched model.Schedule, now time.Time, deadline time.Time) (model.Recommendation, bool) {
	candidates := rankedCandidates(sched, now, deadline)
	if len(candidates) == 0 {
		return model.Recommendation{}, false
	}
	return candidates[0], true
}

// Dispatch decides whether to forward immediately or enqueue, honoring the
// caller's X-Request-Id idempotency key. The deadline is derived from the
// function's own metadata (stashed on the schedule as DeadlineHours by the
// planner), not from client input (§3, §4.9).
func (d *Dispatcher) Dispatch(ctx context.Context, functionID, requestID string, payload []byte) (Decision, error) {
	if requestID != "" {
		if cached, ok := d.IdemCache.Get(requestID); ok {
			return cached.(Decision), nil
		}
	}

	sched, err := d.loadSchedule(ctx, functionID)
	if err != nil {
		return Decision{}, err
	}

	now := time.Now().UTC()
	deadline := now.Add(time.Duration(sched.EffectiveDeadlineHours() * float64(time.Hour)))
	candidates := rankedCandidates(sched, now, deadline)

	var slot model.Recommendation
	var targetURL string
	found := false
	for _, c := range candidates {
		info, ok := sched.Deployment[c.Region]
		if !ok || info.URL == "" {
			continue
		}
		slot, targetURL, found = c, info.URL, true
		break
	}
	if !found {
		return Decision{}, ErrNoViableSlot
	}

	decision := Decision{Region: slot.Region, TargetURL: targetURL, HourStartUTC: slot.HourStartUTC}
	if !slot.HourStartUTC.After(now) {
		decision.Forwarded = true
		decision.Reason = "slot is now or in the past: forwarding immediately"
	} else {
		taskID := requestID
		if taskID == "" {
			taskID = shortuuid.New() + strconv.FormatInt(now.UnixNano(), 10)
		}
		task := model.DelayedTask{
			TaskID:    taskID,
			TargetURL: targetURL,
			Payload:   payload,
			NotBefore: slot.HourStartUTC,
		}
		if err := d.Queue.Enqueue(ctx, task); err != nil {
			return Decision{}, fmt.Errorf("dispatcher: enqueue: %w", err)
		}
		decision.Deferred = true
		decision.Reason = "deferred to best-ranked future slot"
	}

	if requestID != "" {
		d.IdemCache.Set(requestID, decision, IdempotencyTTL)
	}
	return decision, nil
}
