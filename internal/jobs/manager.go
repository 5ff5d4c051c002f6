// Package jobs tracks long-running selection runs in memory: Submit spawns
// the work with a throttled progress callback, Get returns a point-in-time
// snapshot. Jobs are never persisted or expired; a process restart drops
// them, same as the teacher's in-process queue.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/google/uuid"
)

// minReportInterval throttles progress callbacks to at most 10/sec, except
// the terminal tick which always goes through regardless of timing.
const minReportInterval = 100 * time.Millisecond

// Fn is the work a submitted job performs. report must be safe to call from
// the job's own goroutine; Manager synchronizes writes internally.
type Fn func(ctx Context) (any, error)

// Context is what Submit hands to the running job: a Done channel, closed
// once the job function has returned (Manager offers no way to cancel a
// running job), and a throttled progress reporter.
type Context struct {
	Done   <-chan struct{}
	Report func(processed, total, selected int)
}

// Manager is an in-memory job_id -> Job map, safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{jobs: map[string]*domain.Job{}}
}

// Submit creates a pending job, spawns fn in its own goroutine, and returns
// the new job's ID immediately (non-blocking).
func (m *Manager) Submit(params map[string]any, fn Fn) string {
	id := uuid.NewString()
	now := time.Now()
	job := &domain.Job{
		ID: id, Status: domain.JobPending, Parameters: params,
		CreatedAt: now, UpdatedAt: now,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	done := make(chan struct{})
	var lastReport time.Time
	var reportMu sync.Mutex

	report := func(processed, total, selected int) {
		reportMu.Lock()
		now := time.Now()
		throttled := now.Sub(lastReport) < minReportInterval && processed != total
		if throttled {
			reportMu.Unlock()
			return
		}
		lastReport = now
		reportMu.Unlock()
		m.updateProgress(id, processed, total, selected)
	}

	go func() {
		defer close(done)
		m.setStatus(id, domain.JobRunning)

		result, err := func() (result any, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("job panicked: %v", rec)
				}
			}()
			return fn(Context{Done: done, Report: report})
		}()

		m.finish(id, result, err)
	}()

	return id
}

// Get returns a deep copy of job_id's current state. The second return is
// false if no such job exists.
func (m *Manager) Get(jobID string) (domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.Job{}, false
	}
	return cloneJob(job), true
}

func cloneJob(j *domain.Job) domain.Job {
	out := *j
	if j.Parameters != nil {
		out.Parameters = make(map[string]any, len(j.Parameters))
		for k, v := range j.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}

func (m *Manager) setStatus(jobID string, status domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Status = status
		j.UpdatedAt = time.Now()
	}
}

func (m *Manager) updateProgress(jobID string, processed, total, selected int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	j.Progress = domain.JobProgress{Processed: processed, Total: total, Selected: selected}
	j.UpdatedAt = time.Now()
}

func (m *Manager) finish(jobID string, result any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	j.UpdatedAt = time.Now()
	if err != nil {
		j.Status = domain.JobFailed
		j.Error = err.Error()
		return
	}
	j.Status = domain.JobCompleted
	j.Result = result
}
