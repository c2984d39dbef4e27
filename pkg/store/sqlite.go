package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrisonrobin/coachsync/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                    TEXT PRIMARY KEY,
	account_id            TEXT NOT NULL,
	title                 TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	priority_level        INTEGER NOT NULL DEFAULT 4,
	priority_label        TEXT NOT NULL DEFAULT 'low',
	due_date              TEXT,
	status                TEXT NOT NULL DEFAULT 'pending',
	completed_at          INTEGER,
	external_id           TEXT,
	last_external_sync_at INTEGER,
	updated_at            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_account ON tasks(account_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_external
	ON tasks(account_id, external_id) WHERE external_id IS NOT NULL;
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	sync_enabled INTEGER NOT NULL DEFAULT 0,
	api_token    TEXT NOT NULL DEFAULT ''
);
`

const dueDateLayout = "2006-01-02"

// SQLiteStore is the SQLite-backed task store.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const taskColumns = `id, account_id, title, description, priority_level, priority_label,
	due_date, status, completed_at, external_id, last_external_sync_at, updated_at`

func (s *SQLiteStore) ListTasksForAccount(ctx context.Context, accountID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE account_id = ? ORDER BY updated_at", accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return task, err
}

// InsertTask inserts a task, assigning an id and updated_at. A task inserted
// with a sync watermark starts reconciled: the watermark is aligned with
// updated_at so the next run sees neither side as newer.
func (s *SQLiteStore) InsertTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.UpdatedAt = time.Now()
	if task.LastExternalSyncAt != nil {
		task.LastExternalSyncAt = &task.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.AccountID,
		task.Title,
		task.Description,
		task.PriorityLevel,
		task.PriorityLabel,
		nullDate(task.DueDate),
		task.Status,
		nullUnix(task.CompletedAt),
		nullString(task.ExternalID),
		nullUnix(task.LastExternalSyncAt),
		task.UpdatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return &task, nil
}

// PatchTask applies a partial update. updated_at always moves to the write
// time; the sync watermark only ever moves forward, regardless of what the
// caller asks for.
func (s *SQLiteStore) PatchTask(ctx context.Context, id string, patch model.TaskPatch) error {
	now := time.Now()
	sets := []string{"updated_at = ?"}
	args := []interface{}{now.Unix()}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.PriorityLevel != nil {
		sets = append(sets, "priority_level = ?")
		args = append(args, *patch.PriorityLevel)
	}
	if patch.PriorityLabel != nil {
		sets = append(sets, "priority_label = ?")
		args = append(args, *patch.PriorityLabel)
	}
	if patch.HasDueDate {
		sets = append(sets, "due_date = ?")
		args = append(args, nullDate(patch.DueDate))
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, patch.CompletedAt.Unix())
	}
	if patch.ExternalID != nil {
		sets = append(sets, "external_id = ?")
		args = append(args, nullString(*patch.ExternalID))
	}
	if patch.AdvanceSyncWatermark {
		sets = append(sets, "last_external_sync_at = MAX(COALESCE(last_external_sync_at, 0), ?)")
		args = append(args, now.Unix())
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to patch task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acct Account
	var enabled int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, sync_enabled, api_token FROM accounts WHERE id = ?", accountID).
		Scan(&acct.ID, &enabled, &acct.APIToken)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	acct.SyncEnabled = enabled == 1
	return &acct, nil
}

// UpsertAccount creates or replaces an account's sync settings.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, acct Account) error {
	enabled := 0
	if acct.SyncEnabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, sync_enabled, api_token) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sync_enabled = excluded.sync_enabled, api_token = excluded.api_token`,
		acct.ID, enabled, acct.APIToken)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", acct.ID, err)
	}
	return nil
}

// ListSyncEnabledAccounts returns accounts the reconciliation job should
// visit; disabled or token-less accounts are skipped at this level.
func (s *SQLiteStore) ListSyncEnabledAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, sync_enabled, api_token FROM accounts WHERE sync_enabled = 1 AND api_token != '' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acct Account
		var enabled int
		if err := rows.Scan(&acct.ID, &enabled, &acct.APIToken); err != nil {
			return nil, err
		}
		acct.SyncEnabled = enabled == 1
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var description, label, status string
	var dueDate, externalID sql.NullString
	var completedAt, syncedAt sql.NullInt64
	var updatedAt int64

	err := row.Scan(&task.ID, &task.AccountID, &task.Title, &description,
		&task.PriorityLevel, &label, &dueDate, &status, &completedAt,
		&externalID, &syncedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	task.Description = description
	task.PriorityLabel = label
	task.Status = status
	task.UpdatedAt = time.Unix(updatedAt, 0)
	if dueDate.Valid {
		d, err := time.Parse(dueDateLayout, dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("bad due date %q on task %s: %w", dueDate.String, task.ID, err)
		}
		task.DueDate = &d
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		task.CompletedAt = &t
	}
	if externalID.Valid {
		task.ExternalID = externalID.String
	}
	if syncedAt.Valid {
		t := time.Unix(syncedAt.Int64, 0)
		task.LastExternalSyncAt = &t
	}
	return &task, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dueDateLayout)
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
