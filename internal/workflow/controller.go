package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"narrator/internal/config"
	"narrator/internal/logging"
	"narrator/internal/notifications"
	"narrator/internal/publish"
	"narrator/internal/queue"
	"narrator/internal/services"
	"narrator/internal/stage"
	"narrator/internal/stageexec"
)

// StageSet bundles the concrete stage handlers the controller orchestrates.
type StageSet struct {
	Script   stage.Handler
	Images   stage.Handler
	Audio    stage.Handler
	Assemble stage.Handler
}

type pipelineStage struct {
	name    string
	status  queue.Status
	handler stage.Handler
}

func (s StageSet) pipeline() []pipelineStage {
	return []pipelineStage{
		{name: "script", status: queue.StatusScripting, handler: s.Script},
		{name: "images", status: queue.StatusGeneratingImages, handler: s.Images},
		{name: "audio", status: queue.StatusGeneratingAudio, handler: s.Audio},
		{name: "assemble", status: queue.StatusAssembling, handler: s.Assemble},
	}
}

// Controller drives items through the stage sequence.
type Controller struct {
	store     *queue.Store
	stages    StageSet
	notifier  notifications.Service
	logger    *slog.Logger
	heartbeat *HeartbeatMonitor
	refs      publish.LocalPublisher
}

// NewController constructs a controller. A nil notifier disables notifications.
func NewController(cfg *config.Config, store *queue.Store, stages StageSet, notifier notifications.Service, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Controller{
		store:    store,
		stages:   stages,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow-controller"),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		refs: publish.LocalPublisher{DownloadBaseURL: cfg.Notifications.DownloadBaseURL},
	}
}

// Heartbeat exposes the monitor used for stale reclamation.
func (c *Controller) Heartbeat() *HeartbeatMonitor {
	return c.heartbeat
}

// Start queues a full run. Only DRAFT and FAILED items can be started and the
// item must have a topic; nothing is mutated when validation fails.
func (c *Controller) Start(ctx context.Context, id int64) error {
	item, err := c.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if item.Status != queue.StatusDraft && item.Status != queue.StatusFailed {
		return services.Wrap(services.ErrInvalidState, string(item.Status), "start",
			fmt.Sprintf("item %d is %s; only draft or failed items can be started", id, item.Status), nil)
	}
	if err := stage.RequireTopic(item); err != nil {
		return err
	}
	return c.store.RequestRun(ctx, id, queue.RunStart, queue.StatusDraft, queue.StatusFailed)
}

// Resume queues a run from the stage ResumeStage selects and returns that
// stage. Resuming an item that already has a queued resume returns the same
// stage without queueing a second run.
func (c *Controller) Resume(ctx context.Context, id int64) (queue.Status, error) {
	item, err := c.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	target, err := ResumeStage(item)
	if err != nil {
		return "", err
	}
	if err := stage.RequireTopic(item); err != nil {
		return "", err
	}
	if item.RunRequest == queue.RunResume {
		return target, nil
	}
	if err := c.store.RequestRun(ctx, id, queue.RunResume, queue.StatusDraft, queue.StatusFailed); err != nil {
		if latest, loadErr := c.store.Load(ctx, id); loadErr == nil && latest.RunRequest == queue.RunResume {
			if again, stageErr := ResumeStage(latest); stageErr == nil && again == target {
				return target, nil
			}
		}
		return "", err
	}
	return target, nil
}

// ResumeStage computes where a resumed run enters the pipeline from the
// artifacts persisted on the item. It never looks at the failed stage.
func ResumeStage(item *queue.Item) (queue.Status, error) {
	if item == nil {
		return "", services.Wrap(services.ErrNotFound, "", "resume", "item is nil", nil)
	}
	switch {
	case item.Status == queue.StatusReady:
		return "", services.Wrap(services.ErrInvalidState, string(item.Status), "resume",
			fmt.Sprintf("item %d is already ready", item.ID), nil)
	case item.IsProcessing():
		return "", services.Wrap(services.ErrInvalidState, string(item.Status), "resume",
			fmt.Sprintf("item %d is already running (%s)", item.ID, item.Status), nil)
	}
	switch {
	case !item.HasScript():
		return queue.StatusScripting, nil
	case !item.ImagesComplete():
		return queue.StatusGeneratingImages, nil
	default:
		return queue.StatusGeneratingAudio, nil
	}
}

// Run claims one item and executes it synchronously. action selects the entry
// stage: start enters at SCRIPTING, resume at ResumeStage. Artifacts of the
// entry stage and every later stage are cleared before it runs. An item owned
// by another worker is rejected with ErrInvalidState.
func (c *Controller) Run(ctx context.Context, id int64, action queue.RunAction) error {
	item, err := c.store.ClaimRun(ctx, id, action, queue.StatusDraft, queue.StatusFailed)
	if err != nil {
		return err
	}
	return c.execute(ctx, item, action)
}

// execute runs an item the caller has already claimed.
func (c *Controller) execute(ctx context.Context, item *queue.Item, action queue.RunAction) error {
	entry, err := entryStage(item, action)
	if err != nil {
		c.release(ctx, item.ID)
		return err
	}

	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("action", string(action)),
		logging.String("entry_stage", string(entry)),
		logging.String("topic", item.Topic),
	)

	item.RunRequest = queue.RunNone
	item.ClearFrom(entry)

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go c.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	started := time.Now()
	entered := false
	for _, stg := range c.stages.pipeline() {
		if stg.status == entry {
			entered = true
		}
		if !entered {
			continue
		}
		if err := stageexec.Run(ctx, stageexec.Options{
			Logger:     logger.With(logging.String(logging.FieldStage, string(stg.status))),
			Store:      c.store,
			Notifier:   c.notifier,
			Handler:    stg.handler,
			Processing: stg.status,
			Item:       item,
		}); err != nil {
			return c.abort(ctx, logger, item, err)
		}
	}

	if err := item.TransitionTo(queue.StatusReady); err != nil {
		return err
	}
	item.SetProgress("Ready", "Video ready", 100)
	item.LastHeartbeat = nil
	if err := c.store.Save(ctx, item); err != nil {
		return fmt.Errorf("persist ready item: %w", err)
	}

	ref := c.reference(item)
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("title", item.DisplayTitle()),
		logging.String("ref", ref),
		logging.Int("warnings", len(item.Warnings)),
		logging.Duration("run_duration", time.Since(started)),
	)
	if err := c.notifier.NotifyReady(ctx, item.ID, item.DisplayTitle(), ref); err != nil {
		logger.Warn("ready notification not delivered",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.Error(err),
		)
	}
	return nil
}

// Inspection is the operator view of one item.
type Inspection struct {
	Item        *queue.Item
	ResumeStage queue.Status
	Reference   string
}

// Inspect loads an item with its computed resume stage (empty when the item
// cannot be resumed).
func (c *Controller) Inspect(ctx context.Context, id int64) (Inspection, error) {
	item, err := c.store.Load(ctx, id)
	if err != nil {
		return Inspection{}, err
	}
	out := Inspection{Item: item}
	if target, err := ResumeStage(item); err == nil {
		out.ResumeStage = target
	}
	if item.Status == queue.StatusReady {
		out.Reference = c.reference(item)
	}
	return out, nil
}

// abort settles an item whose run stopped on runErr. Cancellation leaves the
// item to the stale reclaimer. An item still in a processing status (a
// checkpoint that could not be saved, or a stage entry rejected mid-run) is
// failed here; otherwise the claim is released.
func (c *Controller) abort(ctx context.Context, logger *slog.Logger, item *queue.Item, runErr error) error {
	if errors.Is(runErr, context.Canceled) || ctx.Err() != nil {
		return runErr
	}
	if !item.IsProcessing() {
		c.release(ctx, item.ID)
		return runErr
	}
	item.SetFailed(runErr.Error())
	if err := c.store.Save(ctx, item); err != nil {
		logger.Error("failed to persist run failure",
			logging.String(logging.FieldEventType, "run_failure_unsaved"),
			logging.String(logging.FieldErrorHint, "the stale reclaimer will fail the item"),
			logging.Error(err),
		)
		return runErr
	}
	if err := c.notifier.NotifyFailed(ctx, item.ID, item.DisplayTitle(), item.ErrorMessage); err != nil {
		logger.Warn("failure notification not delivered",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.Error(err),
		)
	}
	return runErr
}

func (c *Controller) release(ctx context.Context, id int64) {
	if err := c.store.ReleaseClaim(context.WithoutCancel(ctx), id); err != nil {
		c.logger.Warn("failed to release run claim",
			logging.Int64(logging.FieldItemID, id),
			logging.Error(err),
		)
	}
}

func (c *Controller) reference(item *queue.Item) string {
	if url := strings.TrimSpace(item.PublishedURL); url != "" {
		return url
	}
	return c.refs.Reference(item.ID, item.FinalVideoPath)
}

func entryStage(item *queue.Item, action queue.RunAction) (queue.Status, error) {
	switch action {
	case queue.RunStart:
		if item.Status != queue.StatusDraft && item.Status != queue.StatusFailed {
			return "", services.Wrap(services.ErrInvalidState, string(item.Status), "start",
				fmt.Sprintf("item %d is %s; only draft or failed items can be started", item.ID, item.Status), nil)
		}
		return queue.StatusScripting, nil
	case queue.RunResume:
		return ResumeStage(item)
	default:
		return "", errors.New("run action is required")
	}
}
