package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"capgate/internal/config"
	"capgate/internal/deps"
	"capgate/internal/pipeline"
	"capgate/internal/preflight"
)

const statusRecentRuns = 10

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show detector readiness, dependencies and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := newStatusPrinter(out)

			p.section("Configuration")
			source := ctx.configPath
			if !ctx.configExists {
				source = "defaults (" + ctx.configPath + " not found)"
			}
			p.item(levelInfo, "Config", source)
			p.item(levelInfo, "Output format", cfg.Output.Format)
			p.item(levelInfo, "Metrics", metricsDetail(cfg))

			p.section("VAD tiers")
			for _, r := range preflight.CheckTiers(cfg) {
				level := resultLevel(r)
				if r.Passed && r.Detail == "Disabled" {
					level = levelInfo
				}
				p.item(level, r.Name, r.Detail)
			}
			selection := preflight.CheckTierSelection(cfg)
			p.item(resultLevel(selection), "Fallback order", selection.Detail)

			p.section("Dependencies")
			ffmpeg := preflight.FFmpegVersion(cmd.Context(), cfg.FFmpegBinary())
			statuses := preflight.CheckSystemDeps(cfg)
			for _, s := range statuses {
				detail := s.Path
				if s.Name == "FFmpeg" {
					detail = ffmpeg.Detail()
				} else if !s.Available {
					detail = s.Detail
				}
				p.item(depLevel(s), s.Name, detail)
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				p.item(levelFail, "Required", "missing "+strings.Join(names, ", "))
			}

			p.section("Directories")
			for _, r := range []preflight.Result{
				preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
				preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
			} {
				p.item(resultLevel(r), r.Name, r.Detail)
			}

			p.section("Recent runs")
			reports, err := pipeline.LoadReports(pipeline.ReportsDir(cfg.Paths.WorkDir), statusRecentRuns)
			switch {
			case err != nil:
				p.item(levelWarn, "Reports", err.Error())
			case len(reports) == 0:
				p.item(levelInfo, "Reports", "No runs recorded")
			default:
				fmt.Fprintln(out, renderReportsTable(reports))
			}
			return nil
		},
	}
}

func metricsDetail(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return "Disabled"
	}
	return cfg.Metrics.TextfilePath
}

func resultLevel(r preflight.Result) checkLevel {
	if r.Passed {
		return levelOK
	}
	return levelFail
}

func depLevel(s deps.Status) checkLevel {
	switch {
	case s.Available:
		return levelOK
	case s.Optional:
		return levelWarn
	default:
		return levelFail
	}
}

// renderReportsTable lists recent runs newest first; a degraded tier is
// starred.
func renderReportsTable(reports []pipeline.Report) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		tier := r.Tier
		if r.Degraded {
			tier += "*"
		}
		rows = append(rows, []string{
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			filepath.Base(r.AudioPath),
			r.Status,
			tier,
			strconv.Itoa(r.CuesOut),
			strconv.Itoa(r.Dropped),
			r.Reason,
		})
	}
	return renderTable(
		[]string{"Finished", "Track", "Status", "Tier", "Cues", "Dropped", "Reason"},
		rows, 4, 5,
	)
}
