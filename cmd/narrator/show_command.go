package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"narrator/internal/config"
	"narrator/internal/daemonrun"
	"narrator/internal/queue"
)

type itemJSON struct {
	ID              int64              `json:"id"`
	Topic           string             `json:"topic"`
	Style           string             `json:"style"`
	Status          queue.Status       `json:"status"`
	Title           string             `json:"title,omitempty"`
	Description     string             `json:"description,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	Scenes          []queue.Scene      `json:"scenes,omitempty"`
	Images          []queue.ImageAsset `json:"images,omitempty"`
	Audio           []queue.AudioClip  `json:"audio,omitempty"`
	VideoPath       string             `json:"video_path,omitempty"`
	ThumbnailPath   string             `json:"thumbnail_path,omitempty"`
	CaptionsPath    string             `json:"captions_path,omitempty"`
	Reference       string             `json:"reference,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	Error           string             `json:"error,omitempty"`
	FailedStage     queue.Status       `json:"failed_stage,omitempty"`
	ResumeStage     queue.Status       `json:"resume_stage,omitempty"`
	RunRequest      queue.RunAction    `json:"run_request,omitempty"`
	ProgressPercent float64            `json:"progress_percent"`
	ProgressMessage string             `json:"progress_message,omitempty"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

func newItemJSON(item *queue.Item, resume queue.Status, ref string) itemJSON {
	return itemJSON{
		ID:              item.ID,
		Topic:           item.Topic,
		Style:           item.Style,
		Status:          item.Status,
		Title:           item.Title,
		Description:     item.Description,
		Tags:            item.Tags,
		Scenes:          item.Script,
		Images:          item.Images,
		Audio:           item.Audio,
		VideoPath:       item.FinalVideoPath,
		ThumbnailPath:   item.ThumbnailPath,
		CaptionsPath:    item.CaptionsPath,
		Reference:       ref,
		Warnings:        item.Warnings,
		Error:           item.ErrorMessage,
		FailedStage:     item.FailedStage,
		ResumeStage:     resume,
		RunRequest:      item.RunRequest,
		ProgressPercent: item.ProgressPercent,
		ProgressMessage: item.ProgressMessage,
		CreatedAt:       formatTime(item.CreatedAt),
		UpdatedAt:       formatTime(item.UpdatedAt),
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item with its scenes and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(nil, func(_ *config.Config, _ *queue.Store, p daemonrun.Pipeline) error {
				view, err := p.Controller.Inspect(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, newItemJSON(view.Item, view.ResumeStage, view.Reference))
				}
				renderItem(cmd.OutOrStdout(), view.Item, view.ResumeStage, view.Reference)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func renderItem(out io.Writer, item *queue.Item, resume queue.Status, ref string) {
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "%-12s %s\n", label+":", value)
	}
	line("Item", fmt.Sprintf("%d", item.ID))
	line("Topic", item.Topic)
	line("Style", item.Style)
	line("Status", statusCell(item))
	line("Title", item.Title)
	line("Tags", strings.Join(item.Tags, ", "))
	line("Progress", progressCell(item))
	line("Error", item.ErrorMessage)
	if resume != "" {
		line("Resume at", string(resume))
	}
	line("Video", item.FinalVideoPath)
	line("Thumbnail", item.ThumbnailPath)
	line("Captions", item.CaptionsPath)
	line("Reference", ref)
	if total := item.TotalAudioDuration(); total > 0 {
		line("Duration", fmt.Sprintf("%.1fs", total))
	}
	for _, warning := range item.Warnings {
		line("Warning", warning)
	}
	if len(item.Script) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Words", "Image", "Audio", "Prompt"},
		buildSceneRows(item),
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignLeft},
	))
}
