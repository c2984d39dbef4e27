package store

import (
	"context"
	"testing"
	"time"

	"github.com/harrisonrobin/coachsync/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	inserted, err := s.InsertTask(ctx, model.Task{
		AccountID:     "acct-1",
		Title:         "Draft proposal",
		Description:   "first pass",
		PriorityLevel: 1,
		PriorityLabel: "urgent",
		DueDate:       &due,
		Status:        model.PENDING,
	})
	if err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("Expected an assigned id")
	}

	got, err := s.GetTask(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "Draft proposal" || got.Description != "first pass" {
		t.Errorf("Unexpected task: %+v", got)
	}
	if got.PriorityLevel != 1 || got.PriorityLabel != "urgent" {
		t.Errorf("Unexpected priority: %d %q", got.PriorityLevel, got.PriorityLabel)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("Expected due %v, got %v", due, got.DueDate)
	}
	if got.ExternalID != "" || got.LastExternalSyncAt != nil {
		t.Error("New task should start unlinked with no watermark")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetTask(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListTasksForAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, acct := range []string{"acct-1", "acct-1", "acct-2"} {
		if _, err := s.InsertTask(ctx, model.Task{AccountID: acct, Title: "t", PriorityLevel: 4, Status: model.PENDING}); err != nil {
			t.Fatalf("InsertTask failed: %v", err)
		}
	}

	tasks, err := s.ListTasksForAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ListTasksForAccount failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("Expected 2 tasks for acct-1, got %d", len(tasks))
	}
}

func TestPatchTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inserted, err := s.InsertTask(ctx, model.Task{
		AccountID: "acct-1", Title: "Old", PriorityLevel: 3, Status: model.PENDING,
	})
	if err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	title := "New"
	level := 1
	label := "urgent"
	externalID := "ext-1"
	err = s.PatchTask(ctx, inserted.ID, model.TaskPatch{
		Title:                &title,
		PriorityLevel:        &level,
		PriorityLabel:        &label,
		ExternalID:           &externalID,
		AdvanceSyncWatermark: true,
	})
	if err != nil {
		t.Fatalf("PatchTask failed: %v", err)
	}

	got, err := s.GetTask(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "New" || got.PriorityLevel != 1 || got.ExternalID != "ext-1" {
		t.Errorf("Patch not applied: %+v", got)
	}
	if got.Status != model.PENDING {
		t.Errorf("Untouched field changed: %q", got.Status)
	}
	if got.LastExternalSyncAt == nil {
		t.Fatal("Expected watermark set")
	}
	if got.UpdatedAt.Before(*got.LastExternalSyncAt) {
		t.Error("updated_at should not lag the watermark it was written with")
	}
}

func TestPatchTaskClearsDueDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	inserted, err := s.InsertTask(ctx, model.Task{
		AccountID: "acct-1", Title: "t", PriorityLevel: 2, DueDate: &due, Status: model.PENDING,
	})
	if err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	if err := s.PatchTask(ctx, inserted.ID, model.TaskPatch{HasDueDate: true, DueDate: nil}); err != nil {
		t.Fatalf("PatchTask failed: %v", err)
	}
	got, _ := s.GetTask(ctx, inserted.ID)
	if got.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", got.DueDate)
	}
}

func TestPatchTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	title := "x"
	if err := s.PatchTask(context.Background(), "nope", model.TaskPatch{Title: &title}); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestWatermarkMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inserted, err := s.InsertTask(ctx, model.Task{
		AccountID: "acct-1", Title: "t", PriorityLevel: 2, Status: model.PENDING,
	})
	if err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	var last time.Time
	for i := 0; i < 3; i++ {
		if err := s.PatchTask(ctx, inserted.ID, model.TaskPatch{AdvanceSyncWatermark: true}); err != nil {
			t.Fatalf("PatchTask failed: %v", err)
		}
		got, _ := s.GetTask(ctx, inserted.ID)
		if got.LastExternalSyncAt == nil {
			t.Fatal("Expected watermark set")
		}
		if got.LastExternalSyncAt.Before(last) {
			t.Fatalf("Watermark rolled back from %v to %v", last, got.LastExternalSyncAt)
		}
		last = *got.LastExternalSyncAt
	}
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetAccount(ctx, "acct-1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for unknown account, got %v", err)
	}

	accounts := []Account{
		{ID: "acct-1", SyncEnabled: true, APIToken: "tok-1"},
		{ID: "acct-2", SyncEnabled: false, APIToken: "tok-2"},
		{ID: "acct-3", SyncEnabled: true, APIToken: ""},
	}
	for _, acct := range accounts {
		if err := s.UpsertAccount(ctx, acct); err != nil {
			t.Fatalf("UpsertAccount failed: %v", err)
		}
	}

	got, err := s.GetAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.SyncConfigured() {
		t.Error("acct-1 should be sync-configured")
	}

	enabled, err := s.ListSyncEnabledAccounts(ctx)
	if err != nil {
		t.Fatalf("ListSyncEnabledAccounts failed: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != "acct-1" {
		t.Errorf("Expected only acct-1 eligible, got %+v", enabled)
	}

	// Upsert overwrites in place.
	if err := s.UpsertAccount(ctx, Account{ID: "acct-1", SyncEnabled: false, APIToken: "tok-1"}); err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}
	got, _ = s.GetAccount(ctx, "acct-1")
	if got.SyncEnabled {
		t.Error("Expected acct-1 disabled after upsert")
	}
}
