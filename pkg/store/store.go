package store

import (
	"context"
	"errors"

	"github.com/harrisonrobin/coachsync/pkg/model"
)

// ErrNotFound is returned when a task or account does not exist.
var ErrNotFound = errors.New("not found")

// Account holds one account's sync settings. The token and enable flag are a
// typed row of their own, never mixed into a free-form preference blob.
type Account struct {
	ID          string
	SyncEnabled bool
	APIToken    string
}

// SyncConfigured reports whether the account can reach the external service.
func (a *Account) SyncConfigured() bool {
	return a.SyncEnabled && a.APIToken != ""
}

// TaskStore is the slice of the internal task store the synchronizer
// consumes. It never deletes tasks; deletion is owned by the store's other
// callers.
type TaskStore interface {
	ListTasksForAccount(ctx context.Context, accountID string) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	InsertTask(ctx context.Context, task model.Task) (*model.Task, error)
	PatchTask(ctx context.Context, id string, patch model.TaskPatch) error
	GetAccount(ctx context.Context, accountID string) (*Account, error)
}
