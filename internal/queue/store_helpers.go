package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, topic, style, status, title, description, tags_json, script_json, images_json, audio_json, final_video_path, thumbnail_path, captions_path, published_url, warnings_json, error_message, failed_stage, run_request, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		topic            string
		style            string
		statusStr        string
		title            sql.NullString
		description      sql.NullString
		tagsJSON         sql.NullString
		scriptJSON       sql.NullString
		imagesJSON       sql.NullString
		audioJSON        sql.NullString
		finalVideo       sql.NullString
		thumbnail        sql.NullString
		captions         sql.NullString
		publishedURL     sql.NullString
		warningsJSON     sql.NullString
		errorMessage     sql.NullString
		failedStage      sql.NullString
		runRequest       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&topic,
		&style,
		&statusStr,
		&title,
		&description,
		&tagsJSON,
		&scriptJSON,
		&imagesJSON,
		&audioJSON,
		&finalVideo,
		&thumbnail,
		&captions,
		&publishedURL,
		&warningsJSON,
		&errorMessage,
		&failedStage,
		&runRequest,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Topic:           topic,
		Style:           style,
		Status:          Status(statusStr),
		Title:           title.String,
		Description:     description.String,
		FinalVideoPath:  finalVideo.String,
		ThumbnailPath:   thumbnail.String,
		CaptionsPath:    captions.String,
		PublishedURL:    publishedURL.String,
		ErrorMessage:    errorMessage.String,
		FailedStage:     Status(failedStage.String),
		RunRequest:      RunAction(runRequest.String),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if err := decodeJSONColumn(tagsJSON, &item.Tags); err != nil {
		return nil, fmt.Errorf("item %d tags: %w", id, err)
	}
	if err := decodeJSONColumn(scriptJSON, &item.Script); err != nil {
		return nil, fmt.Errorf("item %d script: %w", id, err)
	}
	if err := decodeJSONColumn(imagesJSON, &item.Images); err != nil {
		return nil, fmt.Errorf("item %d images: %w", id, err)
	}
	if err := decodeJSONColumn(audioJSON, &item.Audio); err != nil {
		return nil, fmt.Errorf("item %d audio: %w", id, err)
	}
	if err := decodeJSONColumn(warningsJSON, &item.Warnings); err != nil {
		return nil, fmt.Errorf("item %d warnings: %w", id, err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func decodeJSONColumn[T any](raw sql.NullString, dest *[]T) error {
	if !raw.Valid || raw.String == "" {
		*dest = nil
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dest)
}

func encodeJSONColumn[T any](values []T) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// storedTimeLayout is fixed-width so timestamps compare correctly as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}

func nowString() string {
	return formatTime(time.Now())
}
