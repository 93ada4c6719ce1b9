package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"capgate/internal/fileutil"
	"capgate/internal/logging"
	"capgate/internal/observe"
	"capgate/internal/services"
)

const reportsDirName = "reports"

// Report is the persisted record of one Run.
type Report struct {
	RunID          string          `json:"run_id"`
	JobID          string          `json:"job_id,omitempty"`
	TraceID        string          `json:"trace_id,omitempty"`
	Status         string          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
	AudioPath      string          `json:"audio_path"`
	TranscriptPath string          `json:"transcript_path"`
	OutputPath     string          `json:"output_path"`
	Format         string          `json:"format,omitempty"`
	TrackSeconds   float64         `json:"track_seconds"`
	Tier           string          `json:"vad_tier,omitempty"`
	Degraded       bool            `json:"degraded"`
	Bypassed       bool            `json:"bypassed"`
	Coverage       float64         `json:"coverage"`
	CuesIn         int             `json:"cues_in"`
	CuesOut        int             `json:"cues_out"`
	Dropped        int             `json:"dropped"`
	Merged         int             `json:"merged"`
	Passthrough    int             `json:"passthrough"`
	Filtered       int             `json:"segments_filtered"`
	Similarity     float64         `json:"text_similarity"`
	Issues         []string        `json:"issues,omitempty"`
	Attempts       []ReportAttempt `json:"attempts,omitempty"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// ReportAttempt is one VAD tier invocation.
type ReportAttempt struct {
	Tier      string  `json:"tier"`
	Detector  string  `json:"detector"`
	Outcome   string  `json:"outcome"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Error     string  `json:"error,omitempty"`
}

// ReportsDir returns the directory reports are written to, or "" when no
// work directory is configured.
func ReportsDir(workDir string) string {
	if strings.TrimSpace(workDir) == "" {
		return ""
	}
	return filepath.Join(workDir, reportsDirName)
}

func buildReport(ctx context.Context, req Request, res *Result, runErr error) Report {
	rep := Report{
		RunID:          res.RunID,
		JobID:          strings.TrimSpace(req.JobID),
		TraceID:        observe.TraceID(ctx),
		Status:         "ok",
		AudioPath:      req.AudioPath,
		TranscriptPath: req.TranscriptPath,
		OutputPath:     req.OutputPath,
		Format:         string(res.Format),
		TrackSeconds:   res.TrackSeconds,
		Tier:           string(res.VAD.Tier),
		Degraded:       res.VAD.Degraded,
		Bypassed:       res.VAD.Bypassed,
		Coverage:       res.VAD.Coverage,
		CuesIn:         res.Gate.Input,
		CuesOut:        res.Gate.Output,
		Dropped:        res.Gate.Dropped,
		Merged:         res.Gate.Merged,
		Passthrough:    res.Gate.Passthrough,
		Filtered:       res.Filtered,
		Similarity:     res.Similarity,
		Issues:         res.Issues,
		FinishedAt:     time.Now().UTC(),
	}
	if runErr != nil {
		rep.Status = "failed"
		rep.Reason = string(services.FailureReason(runErr))
		rep.Error = runErr.Error()
	}
	for _, a := range res.VAD.Attempts {
		attempt := ReportAttempt{
			Tier:      string(a.Tier),
			Detector:  a.Detector,
			Outcome:   a.Outcome,
			ElapsedMS: float64(a.Elapsed.Microseconds()) / 1000,
		}
		if a.Err != nil {
			attempt.Error = a.Err.Error()
		}
		rep.Attempts = append(rep.Attempts, attempt)
	}
	return rep
}

func (r *Runner) persistReport(ctx context.Context, req Request, res *Result, runErr error) {
	dir := ReportsDir(r.cfg.Paths.WorkDir)
	if dir == "" {
		return
	}
	path, err := WriteReport(dir, buildReport(ctx, req, res, runErr))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to persist run report", "run_report_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "capgate status will not list this run"),
			logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir"),
		)
		return
	}
	res.ReportPath = path
}

// WriteReport writes rep as <dir>/<run_id>.json and returns the path.
func WriteReport(dir string, rep Report) (string, error) {
	if rep.RunID == "" {
		return "", errors.New("report run id is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, rep.RunID+".json")
	if err := fileutil.WriteAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// LoadReports reads reports from dir, newest first. limit <= 0 returns all.
// Unreadable files are skipped. A missing directory yields no reports.
func LoadReports(dir string, limit int) ([]Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reports directory: %w", err)
	}
	reports := make([]Report, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var rep Report
		if err := json.Unmarshal(data, &rep); err != nil {
			continue
		}
		reports = append(reports, rep)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].FinishedAt.After(reports[j].FinishedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}
