package model

import "time"

const (
	PENDING     = "pending"
	IN_PROGRESS = "in_progress"
	COMPLETED   = "completed"
)

// Task is an internal task record owned by the task store. The synchronizer
// reads these and patches them; it never generates ids or deletes rows.
type Task struct {
	ID            string
	AccountID     string
	Title         string
	Description   string
	PriorityLevel int // 1 (highest) .. 4 (lowest)
	PriorityLabel string
	DueDate       *time.Time // calendar date, no time-of-day
	Status        string
	CompletedAt   *time.Time
	// ExternalID links this record to its counterpart on the external
	// service. Empty means "not yet linked".
	ExternalID string
	// LastExternalSyncAt is the watermark of the last confirmed-reconciled
	// state. It only ever advances.
	LastExternalSyncAt *time.Time
	UpdatedAt          time.Time
}

// Completed reports whether the task reached its terminal status.
func (t *Task) Completed() bool {
	return t.Status == COMPLETED
}

// Linked reports whether the task has an external counterpart.
func (t *Task) Linked() bool {
	return t.ExternalID != ""
}

// SyncWatermark returns the watermark, or the epoch when it was never set.
func (t *Task) SyncWatermark() time.Time {
	if t.LastExternalSyncAt == nil {
		return time.Time{}
	}
	return *t.LastExternalSyncAt
}

// TaskPatch is a partial update. Nil fields are left unchanged. DueDate is
// only applied when HasDueDate is set, so a patch can clear a due date.
type TaskPatch struct {
	Title         *string
	Description   *string
	PriorityLevel *int
	PriorityLabel *string
	HasDueDate    bool
	DueDate       *time.Time
	Status        *string
	CompletedAt   *time.Time
	ExternalID    *string
	// AdvanceSyncWatermark asks the store to move LastExternalSyncAt to the
	// write time of this patch. The store never moves it backward.
	AdvanceSyncWatermark bool
}
