package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/harrisonrobin/coachsync/pkg/mapping"
	"github.com/harrisonrobin/coachsync/pkg/model"
	"github.com/harrisonrobin/coachsync/pkg/store"
	"github.com/harrisonrobin/coachsync/pkg/todoist"
)

// Client is the slice of the external service API the engine needs.
// *todoist.Client satisfies it; tests substitute a fake.
type Client interface {
	ListTasks(ctx context.Context) ([]todoist.Task, error)
	CreateTask(ctx context.Context, params todoist.TaskParams) (*todoist.Task, error)
	UpdateTask(ctx context.Context, id string, params todoist.TaskParams) (*todoist.Task, error)
	CloseTask(ctx context.Context, id string) error
	ReopenTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error
}

// ClientFactory builds a client bound to one account's API token.
type ClientFactory func(token string) Client

// Engine reconciles one account's internal tasks with the external service.
// Callers must not run two reconciliations for the same account concurrently;
// accounts are disjoint, so different accounts are safe in parallel.
type Engine struct {
	store     store.TaskStore
	newClient ClientFactory
	logger    *log.Logger
}

// NewEngine builds an engine. logger may be nil for a default stderr logger.
func NewEngine(st store.TaskStore, factory ClientFactory, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{store: st, newClient: factory, logger: logger}
}

// Result summarizes one reconciliation run. Per-item failures land in
// Errors; only a failed initial fetch aborts a run.
type Result struct {
	Pushed   int
	Pulled   int
	Errors   []string
	Duration time.Duration
}

func (r *Result) String() string {
	return fmt.Sprintf("pushed %d, pulled %d, %d errors", r.Pushed, r.Pulled, len(r.Errors))
}

func (r *Result) recordf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ReconcileAccount brings the account's internal and external task sets into
// agreement. The external list is fetched first; without a known external
// state there is nothing safe to reconcile, so that failure aborts the run.
func (e *Engine) ReconcileAccount(ctx context.Context, accountID, token string) (*Result, error) {
	start := time.Now()
	result := &Result{}
	api := e.newClient(token)

	external, err := api.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing external tasks: %w", err)
	}
	internal, err := e.store.ListTasksForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing internal tasks: %w", err)
	}

	externalByID := make(map[string]todoist.Task, len(external))
	for _, ext := range external {
		externalByID[ext.ID] = ext
	}

	// Snapshot linkage before pushing, so freshly-pushed tasks are not
	// re-examined as linked pairs within the same run.
	var unlinked, linked []*model.Task
	for i := range internal {
		if internal[i].Linked() {
			linked = append(linked, &internal[i])
		} else {
			unlinked = append(unlinked, &internal[i])
		}
	}

	e.pushUnlinked(ctx, api, unlinked, result)
	e.reconcileLinked(ctx, api, linked, externalByID, result)
	e.pullNew(ctx, accountID, externalByID, result)

	result.Duration = time.Since(start)
	return result, nil
}

// pushUnlinked creates external counterparts for internal tasks that were
// never linked. Completed tasks are not pushed; their work is already done.
func (e *Engine) pushUnlinked(ctx context.Context, api Client, tasks []*model.Task, result *Result) {
	for _, task := range tasks {
		if task.Completed() {
			continue
		}
		created, err := api.CreateTask(ctx, paramsForTask(task))
		if err != nil {
			result.recordf("push %q: %v", task.Title, err)
			continue
		}
		patch := model.TaskPatch{ExternalID: &created.ID, AdvanceSyncWatermark: true}
		if err := e.store.PatchTask(ctx, task.ID, patch); err != nil {
			result.recordf("link %q to %s: %v", task.Title, created.ID, err)
			continue
		}
		result.Pushed++
	}
}

// reconcileLinked applies the state-merge rule to each linked pair. Matched
// external tasks are removed from externalByID so pullNew does not treat
// them as new.
func (e *Engine) reconcileLinked(ctx context.Context, api Client, tasks []*model.Task, externalByID map[string]todoist.Task, result *Result) {
	for _, task := range tasks {
		ext, ok := externalByID[task.ExternalID]
		if !ok {
			// Deleted upstream. Treat as completion by deletion.
			if !task.Completed() {
				if err := e.markCompleted(ctx, task.ID); err != nil {
					result.recordf("complete %q after external delete: %v", task.Title, err)
				}
			}
			continue
		}
		delete(externalByID, task.ExternalID)

		switch {
		case ext.IsCompleted && !task.Completed():
			// Completion is a terminal signal and beats any timestamp.
			if err := e.markCompleted(ctx, task.ID); err != nil {
				result.recordf("complete %q: %v", task.Title, err)
			}

		case task.Completed() && !ext.IsCompleted:
			if err := api.CloseTask(ctx, ext.ID); err != nil {
				result.recordf("close %q: %v", task.Title, err)
				continue
			}
			e.advanceWatermark(ctx, task.ID, result)

		default:
			watermark := task.SyncWatermark()
			switch {
			case task.UpdatedAt.After(watermark) && task.UpdatedAt.After(ext.UpdatedAt):
				if _, err := api.UpdateTask(ctx, ext.ID, paramsForTask(task)); err != nil {
					result.recordf("update %q: %v", task.Title, err)
					continue
				}
				e.advanceWatermark(ctx, task.ID, result)
				result.Pushed++
			case ext.UpdatedAt.After(watermark):
				if err := e.store.PatchTask(ctx, task.ID, pullPatch(&ext)); err != nil {
					result.recordf("pull %q: %v", ext.Content, err)
					continue
				}
				result.Pulled++
			}
			// Neither side newer than the watermark: already reconciled.
		}
	}
}

// pullNew creates internal tasks for external tasks nobody is linked to.
// Completed ones are intentionally ignored: only actionable work is pulled
// in, never resurrected history.
func (e *Engine) pullNew(ctx context.Context, accountID string, externalByID map[string]todoist.Task, result *Result) {
	for _, ext := range externalByID {
		if ext.IsCompleted {
			continue
		}
		if _, err := e.store.InsertTask(ctx, taskFromExternal(accountID, ext)); err != nil {
			result.recordf("pull %q: %v", ext.Content, err)
			continue
		}
		result.Pulled++
	}
}

func (e *Engine) markCompleted(ctx context.Context, taskID string) error {
	now := time.Now()
	status := model.COMPLETED
	return e.store.PatchTask(ctx, taskID, model.TaskPatch{
		Status:               &status,
		CompletedAt:          &now,
		AdvanceSyncWatermark: true,
	})
}

func (e *Engine) advanceWatermark(ctx context.Context, taskID string, result *Result) {
	if err := e.store.PatchTask(ctx, taskID, model.TaskPatch{AdvanceSyncWatermark: true}); err != nil {
		result.recordf("advance watermark for %s: %v", taskID, err)
	}
}

// paramsForTask maps internal field values onto the external vocabulary.
func paramsForTask(task *model.Task) todoist.TaskParams {
	params := todoist.TaskParams{
		Content:     task.Title,
		Description: task.Description,
		Priority:    mapping.ToExternalPriority(task.PriorityLevel),
	}
	if task.DueDate != nil {
		params.DueDate = task.DueDate.Format("2006-01-02")
	}
	return params
}

// pullPatch maps external field values onto the internal vocabulary.
func pullPatch(ext *todoist.Task) model.TaskPatch {
	level := mapping.ToInternalPriority(ext.Priority)
	label := mapping.PriorityLabel(level)
	patch := model.TaskPatch{
		Title:                &ext.Content,
		Description:          &ext.Description,
		PriorityLevel:        &level,
		PriorityLabel:        &label,
		HasDueDate:           true,
		AdvanceSyncWatermark: true,
	}
	if ext.Due != nil {
		if due, err := ext.Due.DueTime(); err == nil {
			patch.DueDate = &due
		}
	}
	return patch
}

func taskFromExternal(accountID string, ext todoist.Task) model.Task {
	level := mapping.ToInternalPriority(ext.Priority)
	now := time.Now()
	task := model.Task{
		AccountID:          accountID,
		Title:              ext.Content,
		Description:        ext.Description,
		PriorityLevel:      level,
		PriorityLabel:      mapping.PriorityLabel(level),
		Status:             model.PENDING,
		ExternalID:         ext.ID,
		LastExternalSyncAt: &now,
	}
	if ext.Due != nil {
		if due, err := ext.Due.DueTime(); err == nil {
			task.DueDate = &due
		}
	}
	return task
}
