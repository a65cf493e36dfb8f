package queue

import (
	"fmt"
	"strings"
	"time"

	"narrator/internal/services"
)

// Status represents the lifecycle of a content item.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusScripting        Status = "scripting"
	StatusGeneratingImages Status = "generating_images"
	StatusGeneratingAudio  Status = "generating_audio"
	StatusAssembling       Status = "assembling"
	StatusReady            Status = "ready"
	StatusFailed           Status = "failed"
)

// StaleReason is the error message recorded when a heartbeat expires mid-stage.
const StaleReason = "processing interrupted: heartbeat expired"

var allStatuses = []Status{
	StatusDraft,
	StatusScripting,
	StatusGeneratingImages,
	StatusGeneratingAudio,
	StatusAssembling,
	StatusReady,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = []Status{
	StatusScripting,
	StatusGeneratingImages,
	StatusGeneratingAudio,
	StatusAssembling,
}

// transitions is the closed set of legal status edges. Anything not listed is
// rejected by TransitionTo.
var transitions = map[Status][]Status{
	StatusDraft:            {StatusScripting, StatusFailed},
	StatusScripting:        {StatusGeneratingImages, StatusFailed},
	StatusGeneratingImages: {StatusGeneratingAudio, StatusFailed},
	StatusGeneratingAudio:  {StatusAssembling, StatusFailed},
	StatusAssembling:       {StatusReady, StatusFailed},
	StatusFailed:           {StatusScripting, StatusGeneratingImages, StatusGeneratingAudio},
}

// RunAction names what a queued run should do once a worker claims it.
type RunAction string

const (
	RunNone   RunAction = ""
	RunStart  RunAction = "start"
	RunResume RunAction = "resume"
)

// Scene is one narrated segment of a script.
type Scene struct {
	Number         int     `json:"scene_number"`
	Narration      string  `json:"narration"`
	ImagePrompt    string  `json:"image_prompt"`
	TargetDuration float64 `json:"duration_seconds,omitempty"`
}

// ImageAsset is the generated still for one scene.
type ImageAsset struct {
	SceneNumber int    `json:"scene_number"`
	SourceURL   string `json:"source_url,omitempty"`
	Path        string `json:"path"`
}

// AudioClip is the generated narration for one scene. Duration is measured
// from the file, never taken from the script.
type AudioClip struct {
	SceneNumber int     `json:"scene_number"`
	Path        string  `json:"path"`
	Duration    float64 `json:"duration_seconds"`
}

// Item represents a content item persisted in SQLite.
type Item struct {
	ID              int64
	Topic           string
	Style           string
	Status          Status
	Title           string
	Description     string
	Tags            []string
	Script          []Scene
	Images          []ImageAsset
	Audio           []AudioClip
	FinalVideoPath  string
	ThumbnailPath   string
	CaptionsPath    string
	PublishedURL    string
	Warnings        []string
	ErrorMessage    string
	FailedStage     Status
	RunRequest      RunAction
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	for _, s := range processingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Claimed reports whether a worker owns the item. A claim is the heartbeat
// stamped when a run is taken and cleared when the run settles.
func (i Item) Claimed() bool {
	return i.LastHeartbeat != nil
}

// IsProcessing returns true when the item is in the middle of a stage.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// TransitionTo moves the item to the next status, rejecting edges outside the
// transition table.
func (i *Item) TransitionTo(next Status) error {
	if !CanTransition(i.Status, next) {
		return services.Wrap(services.ErrInvalidState, string(next), "transition",
			fmt.Sprintf("item %d cannot move from %s to %s", i.ID, i.Status, next), nil)
	}
	i.Status = next
	return nil
}

// HasScript reports whether a script with at least one scene is persisted.
func (i Item) HasScript() bool {
	return len(i.Script) > 0
}

// ImagesComplete reports whether every scene has an image.
func (i Item) ImagesComplete() bool {
	return len(i.Script) > 0 && len(i.Images) == len(i.Script)
}

// AudioComplete reports whether every scene has measured narration.
func (i Item) AudioComplete() bool {
	return len(i.Script) > 0 && len(i.Audio) == len(i.Script)
}

// TotalAudioDuration sums the measured narration durations.
func (i Item) TotalAudioDuration() float64 {
	var total float64
	for _, clip := range i.Audio {
		total += clip.Duration
	}
	return total
}

// ClearFrom drops the artifacts produced by stage and every stage after it so
// the stage can be re-run from scratch.
func (i *Item) ClearFrom(stage Status) {
	switch stage {
	case StatusScripting:
		i.Title = ""
		i.Description = ""
		i.Tags = nil
		i.Script = nil
		fallthrough
	case StatusGeneratingImages:
		i.Images = nil
		fallthrough
	case StatusGeneratingAudio:
		i.Audio = nil
		fallthrough
	case StatusAssembling:
		i.FinalVideoPath = ""
		i.ThumbnailPath = ""
		i.CaptionsPath = ""
		i.PublishedURL = ""
		i.Warnings = nil
	}
}

// InitProgress resets progress fields for a new stage and clears the previous
// failure.
func (i *Item) InitProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
	i.FailedStage = ""
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed, remembering which stage broke.
func (i *Item) SetFailed(message string) {
	if IsProcessingStatus(i.Status) {
		i.FailedStage = i.Status
	}
	message = services.TruncateMessage(message)
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.ProgressStage = "Failed"
	i.LastHeartbeat = nil
}

// DisplayTitle prefers the generated title and falls back to the topic.
func (i Item) DisplayTitle() string {
	if title := strings.TrimSpace(i.Title); title != "" {
		return title
	}
	return strings.TrimSpace(i.Topic)
}
