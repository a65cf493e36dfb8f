package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"narrator/internal/services"
)

const claimAttempts = 5

// RequestRun records that a worker should start or resume the item. The
// request is accepted only while the item is in one of the allowed statuses,
// has no pending request and is not claimed by a worker, in a single
// conditional update.
func (s *Store) RequestRun(ctx context.Context, id int64, action RunAction, allowed ...Status) error {
	if action == RunNone {
		return errors.New("run action is required")
	}
	if len(allowed) == 0 {
		return errors.New("at least one allowed status is required")
	}
	args := []any{string(action), nowString(), id}
	args = append(args, statusArgs(allowed)...)
	res, err := s.execWithRetry(ctx,
		`UPDATE content_items SET run_request = ?, updated_at = ?
         WHERE id = ? AND run_request IS NULL AND last_heartbeat IS NULL
           AND status IN (`+makePlaceholders(len(allowed))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("request run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 1 {
		return nil
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return services.Wrap(services.ErrNotFound, "", string(action), fmt.Sprintf("item %d", id), nil)
	}
	return rejectRun(item, action)
}

func rejectRun(item *Item, action RunAction) error {
	switch {
	case item.RunRequest != RunNone:
		return services.Wrap(services.ErrInvalidState, string(item.Status), string(action),
			fmt.Sprintf("item %d already has a queued %s", item.ID, item.RunRequest), nil)
	case item.Claimed():
		return services.Wrap(services.ErrInvalidState, string(item.Status), string(action),
			fmt.Sprintf("item %d is already running", item.ID), nil)
	default:
		return services.Wrap(services.ErrInvalidState, string(item.Status), string(action),
			fmt.Sprintf("item %d cannot %s from status %s", item.ID, action, item.Status), nil)
	}
}

// ClaimRun takes ownership of an item for a foreground run. It succeeds only
// while the item is in one of the allowed statuses and no worker holds it; a
// pending request is consumed by the claim.
func (s *Store) ClaimRun(ctx context.Context, id int64, action RunAction, allowed ...Status) (*Item, error) {
	if len(allowed) == 0 {
		return nil, errors.New("at least one allowed status is required")
	}
	now := nowString()
	args := []any{now, now, id}
	args = append(args, statusArgs(allowed)...)
	res, err := s.execWithRetry(ctx,
		`UPDATE content_items SET run_request = NULL, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND last_heartbeat IS NULL AND status IN (`+makePlaceholders(len(allowed))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("claim run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim run: %w", err)
	}
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "", string(action), fmt.Sprintf("item %d", id), nil)
	}
	if affected != 1 {
		if item.Claimed() {
			return nil, rejectRun(item, action)
		}
		return nil, services.Wrap(services.ErrInvalidState, string(item.Status), string(action),
			fmt.Sprintf("item %d cannot %s from status %s", id, action, item.Status), nil)
	}
	return item, nil
}

// ReleaseClaim drops a claim that ended before the item entered a stage.
// Items in a processing status keep their heartbeat for the stale reclaimer.
func (s *Store) ReleaseClaim(ctx context.Context, id int64) error {
	args := []any{nowString(), id}
	args = append(args, statusArgs(processingStatuses)...)
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE content_items SET last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status NOT IN (`+makePlaceholders(len(processingStatuses))+`)`,
		args...); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// CancelRun withdraws a queued request that no worker has claimed yet.
func (s *Store) CancelRun(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE content_items SET run_request = NULL, updated_at = ? WHERE id = ? AND run_request IS NOT NULL`,
		nowString(), id)
	if err != nil {
		return false, fmt.Errorf("cancel run: %w", err)
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// ClaimNextRun hands the oldest queued request to the caller. The same
// conditional update clears the request and stamps the heartbeat, which marks
// the item as owned until the run settles it, so concurrent workers never claim
// the same item. Returns (nil, RunNone, nil) when nothing is queued.
func (s *Store) ClaimNextRun(ctx context.Context) (*Item, RunAction, error) {
	ctx = ensureContext(ctx)
	for attempt := 0; attempt < claimAttempts; attempt++ {
		var (
			id     int64
			action string
		)
		err := retryOnBusy(ctx, func() error {
			return s.db.QueryRowContext(ctx,
				`SELECT id, run_request FROM content_items
                 WHERE run_request IS NOT NULL AND last_heartbeat IS NULL
                 ORDER BY updated_at, id LIMIT 1`,
			).Scan(&id, &action)
		})
		if errors.Is(err, sql.ErrNoRows) {
			return nil, RunNone, nil
		}
		if err != nil {
			return nil, RunNone, fmt.Errorf("select queued run: %w", err)
		}

		now := nowString()
		res, err := s.execWithRetry(ctx,
			`UPDATE content_items SET run_request = NULL, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND run_request = ? AND last_heartbeat IS NULL`,
			now, now, id, action)
		if err != nil {
			return nil, RunNone, fmt.Errorf("claim run: %w", err)
		}
		if affected, err := res.RowsAffected(); err != nil || affected != 1 {
			continue
		}
		item, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, RunNone, err
		}
		if item == nil {
			continue
		}
		return item, RunAction(action), nil
	}
	return nil, RunNone, nil
}

// UpdateHeartbeat refreshes the heartbeat of a claimed item. Items whose run
// already settled (heartbeat cleared) are left alone.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := nowString()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE content_items SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND last_heartbeat IS NOT NULL`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// FailStaleProcessing fails items whose stage stopped heartbeating before
// cutoff. The failed stage is recorded so the item can be resumed.
func (s *Store) FailStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	args := []any{
		StatusFailed,
		StaleReason,
		StaleReason,
		nowString(),
	}
	args = append(args, statusArgs(processingStatuses)...)
	args = append(args, formatTime(cutoff))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE content_items
        SET failed_stage = status, status = ?, error_message = ?, progress_stage = 'Failed',
            progress_percent = 0, progress_message = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+makePlaceholders(len(processingStatuses))+`)
          AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale items: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseStaleClaims clears claims whose owner stopped heartbeating before
// cutoff without moving the item into a stage, so it can be queued again.
func (s *Store) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	args := []any{nowString()}
	args = append(args, statusArgs(processingStatuses)...)
	args = append(args, formatTime(cutoff))
	res, err := s.execWithRetry(ctx,
		`UPDATE content_items SET last_heartbeat = NULL, updated_at = ?
         WHERE status NOT IN (`+makePlaceholders(len(processingStatuses))+`)
           AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	return res.RowsAffected()
}
