package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"narrator/internal/queue"
)

var titleCaser = cases.Title(language.English)

// statusLabel renders "generating_images" as "Generating Images".
func statusLabel(status queue.Status) string {
	return titleCaser.String(strings.ReplaceAll(string(status), "_", " "))
}

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count := stats[status]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{statusLabel(status), fmt.Sprintf("%d", count)})
	}
	return rows
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			truncateCell(item.DisplayTitle(), 48),
			statusCell(item),
			progressCell(item),
			formatTime(item.UpdatedAt),
		})
	}
	return rows
}

func statusCell(item *queue.Item) string {
	label := statusLabel(item.Status)
	if item.Status == queue.StatusFailed && item.FailedStage != "" {
		label += " @ " + string(item.FailedStage)
	}
	switch {
	case item.RunRequest != queue.RunNone:
		label += " (" + string(item.RunRequest) + " queued)"
	case item.Claimed() && !item.IsProcessing() && item.Status != queue.StatusReady:
		label += " (claimed)"
	}
	return label
}

func progressCell(item *queue.Item) string {
	if !item.IsProcessing() {
		return ""
	}
	return fmt.Sprintf("%.0f%% %s", item.ProgressPercent, item.ProgressMessage)
}

func buildSceneRows(item *queue.Item) [][]string {
	images := make(map[int]queue.ImageAsset, len(item.Images))
	for _, img := range item.Images {
		images[img.SceneNumber] = img
	}
	audio := make(map[int]queue.AudioClip, len(item.Audio))
	for _, clip := range item.Audio {
		audio[clip.SceneNumber] = clip
	}
	rows := make([][]string, 0, len(item.Script))
	for _, scene := range item.Script {
		duration := ""
		if clip, ok := audio[scene.Number]; ok {
			duration = fmt.Sprintf("%.2fs", clip.Duration)
		}
		_, hasImage := images[scene.Number]
		rows = append(rows, []string{
			fmt.Sprintf("%d", scene.Number),
			fmt.Sprintf("%d", len(strings.Fields(scene.Narration))),
			yesNo(hasImage),
			duration,
			truncateCell(scene.ImagePrompt, 60),
		})
	}
	return rows
}

func truncateCell(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if limit <= 0 || len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
