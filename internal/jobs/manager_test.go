package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
)

func waitForStatus(t *testing.T, m *Manager, id string, want domain.JobStatus) domain.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.Get(id)
		if !ok {
			t.Fatalf("job %s not found", id)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return domain.Job{}
}

func TestSubmitCompletesSuccessfully(t *testing.T) {
	m := New()
	id := m.Submit(map[string]any{"strategy_id": 1}, func(ctx Context) (any, error) {
		ctx.Report(1, 2, 0)
		ctx.Report(2, 2, 1)
		return "done", nil
	})

	job := waitForStatus(t, m, id, domain.JobCompleted)
	if job.Result != "done" {
		t.Fatalf("expected result 'done', got %v", job.Result)
	}
	if job.Progress.Processed != 2 || job.Progress.Total != 2 || job.Progress.Selected != 1 {
		t.Fatalf("expected final progress 2/2 selected=1, got %+v", job.Progress)
	}
	if job.Progress.Percent() != 100 {
		t.Fatalf("expected 100%% complete, got %d", job.Progress.Percent())
	}
}

func TestSubmitRecordsError(t *testing.T) {
	m := New()
	id := m.Submit(nil, func(ctx Context) (any, error) {
		return nil, errors.New("boom")
	})

	job := waitForStatus(t, m, id, domain.JobFailed)
	if job.Error != "boom" {
		t.Fatalf("expected error 'boom', got %q", job.Error)
	}
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	m := New()
	id := m.Submit(nil, func(ctx Context) (any, error) {
		panic("unexpected")
	})

	job := waitForStatus(t, m, id, domain.JobFailed)
	if job.Error == "" {
		t.Fatalf("expected a recorded error after a panicking job")
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	m := New()
	id := m.Submit(map[string]any{"k": "v"}, func(ctx Context) (any, error) {
		return nil, nil
	})
	waitForStatus(t, m, id, domain.JobCompleted)

	job, _ := m.Get(id)
	job.Parameters["k"] = "mutated"

	again, _ := m.Get(id)
	if again.Parameters["k"] != "v" {
		t.Fatalf("Get must return a deep copy; internal state was mutated via the returned snapshot")
	}
}

func TestGetUnknownJobReturnsFalse(t *testing.T) {
	m := New()
	_, ok := m.Get("does-not-exist")
	if ok {
		t.Fatalf("expected ok=false for an unknown job id")
	}
}
