package pipeline

import (
	"testing"
	"time"
)

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob([]string{"/packages/acme"})
	if job.Status != JobQueued {
		t.Fatalf("new job status = %q", job.Status)
	}
	if job.ID == "" {
		t.Fatal("new job should get an ID")
	}

	transitions := []struct {
		status JobStatus
		stage  Stage
	}{
		{JobRunning, StageDiscovery},
		{JobRunning, StageExtraction},
		{JobCompleted, StageFinalization},
	}
	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.stage)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Stage != tr.stage {
			t.Errorf("expected stage %q, got %q", tr.stage, job.Stage)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := NewJob(nil)
	job.AddError("classification failed for form.pdf")
	job.AddError("mapping failed for sheet.xlsx")

	snap := job.Snapshot()
	if len(snap.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Errors))
	}
	if snap.Errors[0] != "classification failed for form.pdf" {
		t.Errorf("unexpected first error %q", snap.Errors[0])
	}
}

func TestJob_SummaryRoundTrip(t *testing.T) {
	job := NewJob(nil)
	if job.Summary() != nil {
		t.Fatal("summary should be nil while in flight")
	}
	want := &Summary{ProcessingStatus: StatusCompleted}
	job.SetSummary(want)
	if got := job.Summary(); got != want {
		t.Fatalf("summary = %p, want %p", got, want)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	snap := NewJob(nil).Snapshot()
	if snap.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob([]string{"/packages/acme"})
	store.Put(job)

	got := store.Get(job.ID)
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != job.ID {
		t.Errorf("expected ID %q, got %q", job.ID, got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob(nil)
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := NewJob(nil)
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupDuringUpdates(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob([]string{"/packages/acme"})
	store.Put(job)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			job.SetStatus(JobRunning, StageExtraction)
		}
	}()
	for range 200 {
		store.Cleanup()
	}
	<-done

	if store.Get(job.ID) == nil {
		t.Error("expected live job to survive concurrent cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
