package storage

import (
	"context"
	"testing"
	"time"

	"comet-support/internal/record"
)

func newTestRepo(t *testing.T) *FailureRepo {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return NewFailureRepo(db)
}

func TestReplaceAllAndCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []record.Record{
		{PartNumber: "10003939", FailureCode: "F-101", Date: &date},
		{PartNumber: "10003939", FailureCode: "F-101"},
		{PartNumber: "20001111", FailureCode: "F-202"},
	}

	if err := repo.ReplaceAll(ctx, records); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	// Loading again replaces, not appends.
	if err := repo.ReplaceAll(ctx, records[:1]); err != nil {
		t.Fatalf("second ReplaceAll() error = %v", err)
	}
	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() after replace = %d, want 1", count)
	}
}

func TestPartStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records := []record.Record{
		{PartNumber: "10003939", FailureCode: "F-101", SerialNumber: "SN-1", MaterialCode: "M-88", MaterialDescription: "seal kit", PartClass: "C1"},
		{PartNumber: "10003939", FailureCode: "F-101", SerialNumber: "SN-1", MaterialCode: "M-88"},
		{PartNumber: "10003939", FailureCode: "F-202", SerialNumber: "SN-2", MaterialCode: "nan"},
		{PartNumber: "10003939", FailureCode: "nan", SerialNumber: "SN-3"},
		{PartNumber: "20001111", FailureCode: "F-303", SerialNumber: "SN-4"},
	}

	if err := repo.ReplaceAll(ctx, records); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	stats, err := repo.PartStats(ctx, "10003939")
	if err != nil {
		t.Fatalf("PartStats() error = %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}

	if len(stats.FailureCodes) != 2 {
		t.Fatalf("FailureCodes = %v, want 2 entries (nan excluded)", stats.FailureCodes)
	}
	if stats.FailureCodes[0].Code != "F-101" || stats.FailureCodes[0].Count != 2 {
		t.Errorf("top failure code = %+v, want F-101 x2", stats.FailureCodes[0])
	}

	if len(stats.RecurringSerials) != 1 {
		t.Fatalf("RecurringSerials = %v, want exactly the serial seen twice", stats.RecurringSerials)
	}
	if stats.RecurringSerials[0].Code != "SN-1" || stats.RecurringSerials[0].Count != 2 {
		t.Errorf("recurring serial = %+v, want SN-1 x2", stats.RecurringSerials[0])
	}

	if len(stats.Materials) != 1 {
		t.Fatalf("Materials = %v, want 1 entry (nan excluded)", stats.Materials)
	}
	m := stats.Materials[0]
	if m.Code != "M-88" || m.Count != 2 {
		t.Errorf("material = %+v, want M-88 x2", m)
	}
	if m.Description != "seal kit" {
		t.Errorf("material description = %q, want first-seen description", m.Description)
	}
}

func TestPartStatsNoMatches(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	stats, err := repo.PartStats(ctx, "99999999")
	if err != nil {
		t.Fatalf("PartStats() error = %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if len(stats.FailureCodes) != 0 || len(stats.Materials) != 0 || len(stats.RecurringSerials) != 0 {
		t.Errorf("expected empty aggregates, got %+v", stats)
	}
}
