// Package job owns the lifecycle of submitted comparison runs.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
)

// Registry is the id -> job store behind the manager. It is the only
// shared mutable structure in the system and must be safe under
// concurrent access; all writes for one job come from that job's own
// pipeline goroutine.
type Registry interface {
	Create(ctx context.Context, j entity.Job) error
	Get(ctx context.Context, id string) (entity.Job, error)
	Update(ctx context.Context, j entity.Job) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]entity.Job, error)
}

// MemoryRegistry is the default, process-local registry. Historical runs
// are not retained across restarts on purpose.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]entity.Job
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]entity.Job)}
}

func (r *MemoryRegistry) Create(_ context.Context, j entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[j.ID]; exists {
		return common.NewAppError("JOB_DUPLICATE", "job id already in use: "+j.ID, common.ErrInvalidInput)
	}
	r.jobs[j.ID] = snapshot(j)
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return entity.Job{}, common.ErrNotFound
	}
	return snapshot(j), nil
}

func (r *MemoryRegistry) Update(_ context.Context, j entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return common.ErrNotFound
	}
	r.jobs[j.ID] = snapshot(j)
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, snapshot(j))
	}
	return out, nil
}

// snapshot deep-copies a job so callers never share memory with the store.
func snapshot(j entity.Job) entity.Job {
	if j.FinishedAt != nil {
		finished := *j.FinishedAt
		j.FinishedAt = &finished
	}
	return j
}

var _ Registry = (*MemoryRegistry)(nil)

// nowUTC keeps registry timestamps comparable across implementations.
func nowUTC() time.Time {
	return time.Now().UTC()
}
