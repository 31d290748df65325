// Package queue implements C9: the delayed-task queue adapter. The
// Cloud Tasks-backed implementation builds an HTTP task carrying a
// schedule_time timestamp.
package queue

import (
	"context"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// Queue is implemented by the Cloud Tasks-backed adapter and by an
// in-memory fake for tests.
type Queue interface {
	// Enqueue schedules task for delivery no earlier than task.NotBefore.
	Enqueue(ctx context.Context, task model.DelayedTask) error
}
