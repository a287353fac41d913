package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nestling/internal/pipeline"
)

// StoredEntry is a persisted retry entry plus its bookkeeping columns.
type StoredEntry struct {
	pipeline.RetryEntry
	BatchID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const entryColumns = `task_id, batch_id, source_ref, file_name, display_label,
	resume_stage, cancelled, error_message, prepared_json, minted_json,
	bytes, width, height, created_at, updated_at`

// SaveBatch upserts the retry entries of a settled batch. A task retried and
// failed again replaces its previous row.
func (s *Store) SaveBatch(ctx context.Context, batchID string, entries []pipeline.RetryEntry) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, entry := range entries {
		preparedJSON, err := marshalNullable(entry.Prepared)
		if err != nil {
			return fmt.Errorf("marshal prepared state: %w", err)
		}
		mintedJSON, err := marshalNullable(entry.Minted)
		if err != nil {
			return fmt.Errorf("marshal minted state: %w", err)
		}

		err = s.execWithRetry(ctx, `INSERT INTO retry_entries (
				task_id, batch_id, source_ref, file_name, display_label,
				resume_stage, cancelled, error_message, prepared_json, minted_json,
				bytes, width, height, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(task_id) DO UPDATE SET
				batch_id = excluded.batch_id,
				source_ref = excluded.source_ref,
				file_name = excluded.file_name,
				display_label = excluded.display_label,
				resume_stage = excluded.resume_stage,
				cancelled = excluded.cancelled,
				error_message = excluded.error_message,
				prepared_json = excluded.prepared_json,
				minted_json = excluded.minted_json,
				bytes = excluded.bytes,
				width = excluded.width,
				height = excluded.height,
				updated_at = excluded.updated_at`,
			entry.TaskID, batchID, entry.SourceRef, entry.FileName, entry.DisplayLabel,
			string(entry.ResumeStage), boolToInt(entry.Cancelled), nullableString(entry.ErrorMessage),
			preparedJSON, mintedJSON,
			entry.Bytes, entry.Width, entry.Height, now, now,
		)
		if err != nil {
			return fmt.Errorf("save retry entry %s: %w", entry.TaskID, err)
		}
	}
	return nil
}

// List returns every pending retry entry in insertion order.
func (s *Store) List(ctx context.Context) ([]StoredEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+entryColumns+` FROM retry_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list retry entries: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Remove deletes the entries for the given task IDs, typically after a
// successful resubmission.
func (s *Store) Remove(ctx context.Context, taskIDs ...string) error {
	for _, id := range taskIDs {
		if err := s.execWithRetry(ctx, `DELETE FROM retry_entries WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("remove retry entry %s: %w", id, err)
		}
	}
	return nil
}

// Clear deletes every pending retry entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.execWithRetry(ctx, `DELETE FROM retry_entries`); err != nil {
		return fmt.Errorf("clear retry entries: %w", err)
	}
	return nil
}

// Count reports the number of pending retry entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM retry_entries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count retry entries: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (StoredEntry, error) {
	var (
		entry        StoredEntry
		resumeStage  string
		cancelled    int
		errorMessage sql.NullString
		preparedJSON sql.NullString
		mintedJSON   sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&entry.TaskID, &entry.BatchID, &entry.SourceRef, &entry.FileName, &entry.DisplayLabel,
		&resumeStage, &cancelled, &errorMessage, &preparedJSON, &mintedJSON,
		&entry.Bytes, &entry.Width, &entry.Height, &createdAt, &updatedAt,
	)
	if err != nil {
		return StoredEntry{}, fmt.Errorf("scan retry entry: %w", err)
	}

	entry.ResumeStage = pipeline.Stage(resumeStage)
	entry.Cancelled = cancelled != 0
	entry.ErrorMessage = errorMessage.String
	if preparedJSON.Valid && preparedJSON.String != "" {
		var prepared pipeline.Prepared
		if err := json.Unmarshal([]byte(preparedJSON.String), &prepared); err != nil {
			return StoredEntry{}, fmt.Errorf("decode prepared state: %w", err)
		}
		entry.Prepared = &prepared
	}
	if mintedJSON.Valid && mintedJSON.String != "" {
		var minted pipeline.Minted
		if err := json.Unmarshal([]byte(mintedJSON.String), &minted); err != nil {
			return StoredEntry{}, fmt.Errorf("decode minted state: %w", err)
		}
		entry.Minted = &minted
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		entry.UpdatedAt = ts
	}
	return entry, nil
}

func marshalNullable(v any) (any, error) {
	switch value := v.(type) {
	case *pipeline.Prepared:
		if value == nil {
			return nil, nil
		}
	case *pipeline.Minted:
		if value == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
