package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"narrator/internal/services"
)

// Create inserts a new draft item for a topic.
func (s *Store) Create(ctx context.Context, topic, style string) (*Item, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "", "create", "topic must not be empty", nil)
	}
	style = strings.ToLower(strings.TrimSpace(style))
	timestamp := nowString()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO content_items (topic, style, status, progress_percent, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		topic,
		style,
		StatusDraft,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier. A missing item returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Load fetches an item, reporting services.ErrNotFound when it does not exist.
func (s *Store) Load(ctx context.Context, id int64) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "load", fmt.Sprintf("item %d", id), nil)
	}
	return item, nil
}

// Save persists every field of an existing item. Items in a processing status
// get their heartbeat refreshed as part of the write.
func (s *Store) Save(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	now := time.Now().UTC()
	item.UpdatedAt = now
	if item.IsProcessing() {
		item.LastHeartbeat = &now
	}

	tags, err := encodeJSONColumn(item.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	script, err := encodeJSONColumn(item.Script)
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	images, err := encodeJSONColumn(item.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	audio, err := encodeJSONColumn(item.Audio)
	if err != nil {
		return fmt.Errorf("encode audio: %w", err)
	}
	warnings, err := encodeJSONColumn(item.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE content_items
         SET topic = ?, style = ?, status = ?, title = ?, description = ?, tags_json = ?,
             script_json = ?, images_json = ?, audio_json = ?, final_video_path = ?,
             thumbnail_path = ?, captions_path = ?, published_url = ?, warnings_json = ?,
             error_message = ?, failed_stage = ?, run_request = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		item.Topic,
		item.Style,
		item.Status,
		nullableString(item.Title),
		nullableString(item.Description),
		tags,
		script,
		images,
		audio,
		nullableString(item.FinalVideoPath),
		nullableString(item.ThumbnailPath),
		nullableString(item.CaptionsPath),
		nullableString(item.PublishedURL),
		warnings,
		nullableString(item.ErrorMessage),
		nullableString(string(item.FailedStage)),
		nullableString(string(item.RunRequest)),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		formatTime(now),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "save", fmt.Sprintf("item %d", item.ID), nil)
	}
	return nil
}

// List returns items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM content_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, statusArgs(statuses)...)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns item counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM content_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Remove deletes an item. Items with a running stage are left alone and
// reported as services.ErrInvalidState.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	args := append([]any{id}, statusArgs(processingStatuses)...)
	res, err := s.execWithRetry(ctx,
		`DELETE FROM content_items WHERE id = ? AND status NOT IN (`+makePlaceholders(len(processingStatuses))+`)`,
		args...)
	if err != nil {
		return false, fmt.Errorf("remove item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if item != nil {
		return false, services.Wrap(services.ErrInvalidState, string(item.Status), "remove",
			fmt.Sprintf("item %d is processing", id), nil)
	}
	return false, nil
}

// ClearFailed deletes every failed item.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM content_items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed items: %w", err)
	}
	return res.RowsAffected()
}

// IDs returns every item identifier, used to find orphaned work directories.
func (s *Store) IDs(ctx context.Context) (map[int64]struct{}, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM content_items`)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()
	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
