package queue

import (
	"context"
	"sync"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// MemQueue is an in-memory Queue used by dispatcher tests.
type MemQueue struct {
	mu    sync.Mutex
	Tasks []model.DelayedTask
}

func NewMemQueue() *MemQueue { return &MemQueue{} }

func (q *MemQueue) Enqueue(ctx context.Context, task model.DelayedTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Tasks = append(q.Tasks, task)
	return nil
}
