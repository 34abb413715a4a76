package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	sweep := &stubJob{name: "payment-sweep"}
	backups := &stubJob{name: "backup-retention"}
	registry := NewRegistry(sweep, nil)
	registry.Register(nil)
	registry.Register(backups)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != sweep || jobs[1] != backups {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryDueHonorsPeriod(t *testing.T) {
	sweep := &stubJob{name: "payment-sweep"}
	retention := &stubJob{name: "outbox-retention"}
	registry := NewRegistry(sweep)
	registry.RegisterEvery(retention, 24*time.Hour)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := registry.Due(start); len(got) != 2 {
		t.Fatalf("first cycle should run everything, got %d", len(got))
	}
	registry.MarkRan("payment-sweep", start)
	registry.MarkRan("outbox-retention", start)

	due := registry.Due(start.Add(5 * time.Minute))
	if len(due) != 1 || due[0] != sweep {
		t.Fatalf("expected only the sweep to be due, got %v", due)
	}
	if got := registry.Due(start.Add(24 * time.Hour)); len(got) != 2 {
		t.Fatalf("retention should be due after a day, got %d", len(got))
	}
}
