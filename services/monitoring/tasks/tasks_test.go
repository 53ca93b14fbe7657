package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
)

func TestAddTaskRejectsDuplicates(t *testing.T) {
	ts := NewTaskScheduler(logging.NewNopLogger())
	defer ts.Stop()

	if _, err := ts.AddTask("sweep", "pending sweep", func(context.Context) error { return nil }, time.Minute); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := ts.AddTask("sweep", "again", func(context.Context) error { return nil }, time.Minute); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
	if n := len(ts.ListTasks()); n != 1 {
		t.Fatalf("expected 1 task got=%d", n)
	}
	if err := ts.RemoveTask("sweep"); err != nil {
		t.Fatalf("remove task: %v", err)
	}
	if _, err := ts.GetTask("sweep"); err == nil {
		t.Fatalf("expected removed task to be gone")
	}
}

func TestScheduledTaskRecursUntilStopped(t *testing.T) {
	ts := NewTaskScheduler(logging.NewNopLogger())

	var runs int32
	task, err := ts.AddTask("tick", "tick", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := ts.ScheduleTask("tick", 0); err != nil {
		t.Fatalf("schedule task: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runs) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ts.Stop()

	stopped := atomic.LoadInt32(&runs)
	if stopped < 3 {
		t.Fatalf("expected at least 3 runs got=%d", stopped)
	}
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != stopped {
		t.Fatalf("task ran after Stop got=%d want=%d", got, stopped)
	}
	if task.Runs() != int(stopped) || task.LastRun().IsZero() {
		t.Fatalf("run bookkeeping off got=%d last=%s", task.Runs(), task.LastRun())
	}
}

func TestRunTaskReportsErrorsAndTimeout(t *testing.T) {
	ts := NewTaskScheduler(logging.NewNopLogger())
	defer ts.Stop()

	task, err := ts.AddTask("slow", "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 0)
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	task.Timeout = 10 * time.Millisecond

	if err := ts.RunTask("slow"); err != nil {
		t.Fatalf("run task: %v", err)
	}
	select {
	case err := <-task.ErrorChan:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded got=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the task error")
	}

	if err := ts.RunTask("missing"); err == nil {
		t.Fatalf("expected unknown task to be rejected")
	}
}
