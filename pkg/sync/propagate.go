package sync

import (
	"context"

	"github.com/harrisonrobin/coachsync/pkg/model"
)

// The propagators push one record's change immediately after a local
// mutation instead of waiting for the next reconciliation pass. They never
// fail the originating write: remote errors are logged and swallowed, and a
// disabled or unconfigured account is a silent no-op.

// PropagateUpsert pushes a created or edited task. An unlinked task is
// created externally and linked; a linked one gets a field update. Returns
// the external id, or "" when nothing was propagated.
func (e *Engine) PropagateUpsert(ctx context.Context, accountID, taskID string) string {
	api, ok := e.accountClient(ctx, accountID)
	if !ok {
		return ""
	}
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		e.logger.Printf("upsert: could not load task %s: %v", taskID, err)
		return ""
	}

	if !task.Linked() {
		created, err := api.CreateTask(ctx, paramsForTask(task))
		if err != nil {
			e.logger.Printf("upsert: could not push task %q: %v", task.Title, err)
			return ""
		}
		patch := model.TaskPatch{ExternalID: &created.ID, AdvanceSyncWatermark: true}
		if err := e.store.PatchTask(ctx, task.ID, patch); err != nil {
			e.logger.Printf("upsert: could not link task %q to %s: %v", task.Title, created.ID, err)
		}
		return created.ID
	}

	if _, err := api.UpdateTask(ctx, task.ExternalID, paramsForTask(task)); err != nil {
		e.logger.Printf("upsert: could not update external task %s: %v", task.ExternalID, err)
		return ""
	}
	e.patchWatermark(ctx, task.ID)
	return task.ExternalID
}

// PropagateStatus mirrors an internal status change onto the external side:
// close on completed, reopen otherwise. Unlinked tasks are left alone.
func (e *Engine) PropagateStatus(ctx context.Context, accountID, taskID, status string) {
	api, ok := e.accountClient(ctx, accountID)
	if !ok {
		return
	}
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		e.logger.Printf("status: could not load task %s: %v", taskID, err)
		return
	}
	if !task.Linked() {
		return
	}

	if status == model.COMPLETED {
		err = api.CloseTask(ctx, task.ExternalID)
	} else {
		err = api.ReopenTask(ctx, task.ExternalID)
	}
	if err != nil {
		e.logger.Printf("status: could not propagate %q for task %s: %v", status, taskID, err)
		return
	}
	e.patchWatermark(ctx, task.ID)
}

// PropagateDelete deletes the external counterpart of an already-deleted
// internal task. A nil external id means the task was never linked and no
// call is made. A failed remote delete never blocks the local delete.
func (e *Engine) PropagateDelete(ctx context.Context, accountID, externalID string) {
	if externalID == "" {
		return
	}
	api, ok := e.accountClient(ctx, accountID)
	if !ok {
		return
	}
	if err := api.DeleteTask(ctx, externalID); err != nil {
		e.logger.Printf("delete: could not delete external task %s: %v", externalID, err)
	}
}

// accountClient resolves the account's sync settings and returns a bound
// client, or false when sync is off or unconfigured.
func (e *Engine) accountClient(ctx context.Context, accountID string) (Client, bool) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		e.logger.Printf("could not load account %s: %v", accountID, err)
		return nil, false
	}
	if !acct.SyncConfigured() {
		return nil, false
	}
	return e.newClient(acct.APIToken), true
}

func (e *Engine) patchWatermark(ctx context.Context, taskID string) {
	if err := e.store.PatchTask(ctx, taskID, model.TaskPatch{AdvanceSyncWatermark: true}); err != nil {
		e.logger.Printf("could not advance watermark for %s: %v", taskID, err)
	}
}
