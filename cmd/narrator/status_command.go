package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"narrator/internal/config"
	"narrator/internal/daemonrun"
	"narrator/internal/deps"
	"narrator/internal/preflight"
	"narrator/internal/queue"
	"narrator/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, dependency and stage status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(nil, func(cfg *config.Config, store *queue.Store, p daemonrun.Pipeline) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string

				lines = append(lines, renderSectionHeader("Daemon", colorize)...)
				running, detail := daemonRunning(cfg)
				kind := statusInfo
				if running {
					kind = statusOK
				}
				lines = append(lines, renderStatusLine("narratord", kind, detail, colorize))
				lines = append(lines, renderStagingUsage(cfg, colorize))

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
				statuses := deps.CheckBinaries(deps.Requirements(cfg))
				statuses = append(statuses, deps.CheckFFmpegFilters(cmd.Context(), cfg.Assembly.FFmpegBinary)...)
				for _, status := range statuses {
					lines = append(lines, renderDependency(status, colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Preflight", colorize)...)
				results := preflight.RunAll(cfg)
				if checkLLM {
					results = append(results, preflight.CheckLLM(cmd.Context(), cfg.LLM))
				}
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}

				summary := p.Manager.Status(cmd.Context())
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Stages", colorize)...)
				for _, name := range []string{"script", "images", "audio", "assemble"} {
					health, ok := summary.StageHealth[name]
					switch {
					case !ok:
						lines = append(lines, renderStatusLine(name, statusWarn, "not configured", colorize))
					case health.Ready:
						lines = append(lines, renderStatusLine(name, statusOK, "ready", colorize))
					default:
						lines = append(lines, renderStatusLine(name, statusError, health.Detail, colorize))
					}
				}

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				fmt.Fprintln(out)
				writeQueueSummary(out, summary.QueueStats, colorize)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Also make a live request to the script LLM")
	return cmd
}

func writeQueueSummary(out io.Writer, stats map[queue.Status]int, colorize bool) {
	fmt.Fprintln(out, strings.Join(renderSectionHeader("Queue", colorize), "\n"))
	rows := buildQueueStatusRows(stats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func renderDependency(status deps.Status, colorize bool) string {
	switch {
	case status.Available:
		return renderStatusLine(status.Name, statusOK, status.Command, colorize)
	case status.Optional:
		return renderStatusLine(status.Name, statusWarn, status.Detail+" ("+status.Description+" disabled)", colorize)
	default:
		return renderStatusLine(status.Name, statusError, status.Detail, colorize)
	}
}

func renderStagingUsage(cfg *config.Config, colorize bool) string {
	dirs, err := staging.ListWorkDirs(cfg.Paths.StagingDir)
	if err != nil {
		return renderStatusLine("staging", statusWarn, err.Error(), colorize)
	}
	detail := fmt.Sprintf("%d work dirs, %s in %s", len(dirs), humanize.IBytes(uint64(staging.TotalSize(dirs))), cfg.Paths.StagingDir)
	return renderStatusLine("staging", statusInfo, detail, colorize)
}

// daemonRunning tries the single-instance lock. A lock we can take means no
// daemon holds it.
func daemonRunning(cfg *config.Config) (bool, string) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Sprintf("unknown (%v)", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, "not running; start with `narrator daemon` or narratord"
	}
	return true, "running (" + cfg.LockPath() + ")"
}
