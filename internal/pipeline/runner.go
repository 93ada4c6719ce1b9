package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"capgate/internal/audio"
	"capgate/internal/config"
	"capgate/internal/cue"
	"capgate/internal/gate"
	"capgate/internal/logging"
	"capgate/internal/observe"
	"capgate/internal/preflight"
	"capgate/internal/services"
	"capgate/internal/subtitles"
	"capgate/internal/textutil"
	"capgate/internal/transcript"
	"capgate/internal/vad"
)

// Request describes one track to synchronize.
type Request struct {
	AudioPath      string
	TranscriptPath string
	OutputPath     string
	// Format overrides output.format. When empty a .vtt OutputPath selects
	// WebVTT.
	Format string
	JobID  string
}

// Result is the outcome of Run. On failure it holds whatever the completed
// stages produced.
type Result struct {
	RunID        string
	OutputPath   string
	Format       subtitles.Format
	TrackSeconds float64
	Cues         []cue.Cue
	VAD          vad.Result
	Gate         gate.Stats
	Normalize    transcript.Stats
	Filtered     int
	Similarity   float64
	Issues       []string
	ReportPath   string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMetrics records into m instead of observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithDetectors replaces the default detector chain. Tiers disabled in
// vad.tiers are still skipped.
func WithDetectors(detectors ...vad.Detector) Option {
	return func(r *Runner) { r.detectors = detectors }
}

// Runner executes the pipeline. A Runner is safe for concurrent Run calls.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observe.Metrics
	detectors []vad.Detector
	engine    *vad.Engine
	gate      *gate.Gate
}

// New builds a Runner from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "config is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}

	vadOpts, err := vad.OptionsFromConfig(cfg.VAD)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "vad options", "", err)
	}
	params := gate.ParamsFromConfig(cfg.Gate)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	r.engine = vad.NewEngine(vadOpts, logger, r.detectors...)
	r.gate = gate.New(params, logging.NewComponentLogger(logger, "gate"))
	return r, nil
}

// Run synchronizes one transcript against one audio track and writes the
// gated subtitle file. The returned error is classified by
// services.FailureReason.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	if job := strings.TrimSpace(req.JobID); job != "" {
		ctx = services.WithJobID(ctx, job)
	}
	if req.AudioPath != "" {
		ctx = services.WithTrack(ctx, filepath.Base(req.AudioPath))
	}
	ctx, span := observe.StartSpan(ctx, "capgate.run")

	res := &Result{RunID: runID, OutputPath: req.OutputPath}
	err := r.run(ctx, req, res)

	tier := string(res.VAD.Tier)
	observe.EndSpan(span, err,
		attribute.String(logging.FieldTier, tier),
		attribute.Int("cues_out", len(res.Cues)),
		attribute.Bool("degraded", res.VAD.Degraded),
	)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	r.metrics.RecordRun(ctx, status, string(services.FailureReason(err)), tier)
	r.persistReport(ctx, req, res, err)
	return res, err
}

func (r *Runner) run(ctx context.Context, req Request, res *Result) error {
	format, err := r.resolveFormat(req)
	if err != nil {
		return err
	}
	res.Format = format

	if err := r.runStage(ctx, StagePreflight, func(context.Context) error {
		return r.checkRequest(req)
	}); err != nil {
		return err
	}

	track, err := r.loadAudio(ctx, req.AudioPath)
	if err != nil {
		return err
	}
	res.TrackSeconds = track.Duration

	segments, raw, err := r.loadCues(ctx, req.TranscriptPath, track.Duration, res)
	if err != nil {
		return err
	}

	vr, err := r.detect(ctx, track)
	res.VAD = vr
	if err != nil {
		return err
	}
	if vr.Degraded && r.cfg.VAD.FailOnDegraded {
		return &services.PipelineError{
			Marker:   services.ErrVADDegraded,
			Stage:    StageVAD,
			Tier:     string(vr.Tier),
			CuesIn:   len(raw),
			Degraded: true,
			Err:      fmt.Errorf("tier %s result is degraded and vad.fail_on_degraded is set", vr.Tier),
		}
	}

	if err := r.runStage(ctx, StageGate, func(ctx context.Context) error {
		gated, stats, err := r.gate.Apply(ctx, raw, vr, track.Duration)
		res.Cues = gated
		res.Gate = stats
		r.metrics.RecordCues(ctx, "gated", stats.Output)
		r.metrics.RecordCues(ctx, "dropped", stats.Dropped)
		r.metrics.RecordCues(ctx, "merged", stats.Merged)
		r.metrics.RecordCues(ctx, "passthrough", stats.Passthrough)
		return err
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, StageWrite, func(ctx context.Context) error {
		return subtitles.WriteFile(ctx, req.OutputPath, res.Cues, format)
	}); err != nil {
		return err
	}

	if r.cfg.Output.Validate {
		_ = r.runStage(ctx, StageValidate, func(ctx context.Context) error {
			res.Issues = subtitles.ValidateContent(req.OutputPath, track.Duration)
			logger := logging.WithContext(ctx, r.logger)
			for _, issue := range res.Issues {
				logging.WarnWithContext(logger, "subtitle validation issue", "subtitle_validation_issue",
					logging.String("issue", issue),
					logging.String("issue_code", subtitles.IssueCode(issue)),
					logging.String("path", req.OutputPath),
					logging.String(logging.FieldImpact, "players may show captions out of order or past the end"),
					logging.String(logging.FieldErrorHint, "inspect the written file with capgate validate"),
				)
			}
			return nil
		})
	}

	res.Similarity = textutil.TextSimilarity(segmentText(segments), cueText(res.Cues))
	r.logSummary(ctx, req, res)
	return nil
}

// Detect decodes audioPath and runs speech detection only.
func (r *Runner) Detect(ctx context.Context, audioPath string) (*audio.Track, vad.Result, error) {
	ctx = services.WithRunID(ctx, uuid.NewString())
	ctx = services.WithTrack(ctx, filepath.Base(audioPath))
	track, err := r.loadAudio(ctx, audioPath)
	if err != nil {
		return nil, vad.Result{}, err
	}
	vr, err := r.detect(ctx, track)
	return track, vr, err
}

// Cues loads, filters and normalizes a transcript without gating it.
// trackSeconds bounds the tail filter; zero disables it.
func (r *Runner) Cues(ctx context.Context, transcriptPath string, trackSeconds float64) ([]cue.Cue, transcript.Stats, error) {
	ctx = services.WithRunID(ctx, uuid.NewString())
	var res Result
	_, raw, err := r.loadCues(ctx, transcriptPath, trackSeconds, &res)
	return raw, res.Normalize, err
}

func (r *Runner) loadAudio(ctx context.Context, path string) (*audio.Track, error) {
	var track *audio.Track
	err := r.runStage(ctx, StageAudio, func(ctx context.Context) error {
		var err error
		track, err = audio.Load(ctx, path, audio.LoadOptions{
			FFmpegBinary: r.cfg.FFmpegBinary(),
			SampleRate:   r.cfg.Audio.SampleRate,
		})
		return err
	})
	return track, err
}

func (r *Runner) loadCues(ctx context.Context, path string, trackSeconds float64, res *Result) ([]transcript.Segment, []cue.Cue, error) {
	var segments []transcript.Segment
	if err := r.runStage(ctx, StageTranscript, func(ctx context.Context) error {
		loaded, err := transcript.Load(path)
		if err != nil {
			return err
		}
		if r.cfg.Normalize.FilterHallucinations {
			filtered := transcript.Filter(loaded, trackSeconds)
			transcript.LogFilterSummary(ctx, logging.WithContext(ctx, r.logger), filtered)
			res.Filtered = len(filtered.Removals)
			r.metrics.RecordCues(ctx, "filtered", res.Filtered)
			loaded = filtered.Segments
		}
		if len(loaded) == 0 {
			return &services.PipelineError{
				Marker: services.ErrTranscriptEmpty,
				Stage:  StageTranscript,
				Err:    fmt.Errorf("filter removed every segment of %s", path),
			}
		}
		segments = loaded
		return nil
	}); err != nil {
		return nil, nil, err
	}

	var raw []cue.Cue
	if err := r.runStage(ctx, StageNormalize, func(ctx context.Context) error {
		cues, stats := transcript.NormalizeContext(ctx, segments, transcript.Options{
			Granularity: r.cfg.Normalize.Granularity,
			Logger:      r.logger,
		})
		res.Normalize = stats
		if len(cues) == 0 {
			return &services.PipelineError{
				Marker: services.ErrTranscriptEmpty,
				Stage:  StageNormalize,
				Err:    fmt.Errorf("all %d segments were skipped", stats.Segments),
			}
		}
		raw = cues
		r.metrics.RecordCues(ctx, "raw", len(raw))
		return nil
	}); err != nil {
		return segments, nil, err
	}
	return segments, raw, nil
}

func (r *Runner) detect(ctx context.Context, track *audio.Track) (vad.Result, error) {
	var vr vad.Result
	err := r.runStage(ctx, StageVAD, func(ctx context.Context) error {
		var err error
		vr, err = r.engine.Detect(ctx, track)
		for _, attempt := range vr.Attempts {
			r.metrics.RecordVADAttempt(ctx, string(attempt.Tier), attempt.Outcome, attempt.Elapsed.Seconds())
		}
		if err == nil {
			r.metrics.RecordVADResult(ctx, string(vr.Tier), vr.Coverage, vr.Degraded, vr.Bypassed)
		}
		return err
	})
	return vr, err
}

func (r *Runner) resolveFormat(req Request) (subtitles.Format, error) {
	value := strings.TrimSpace(req.Format)
	if value == "" && subtitles.FormatFromPath(req.OutputPath) == subtitles.FormatVTT {
		value = string(subtitles.FormatVTT)
	}
	if value == "" {
		value = r.cfg.Output.Format
	}
	return subtitles.ParseFormat(value)
}

func (r *Runner) checkRequest(req Request) error {
	for _, field := range []struct{ name, value string }{
		{"audio", req.AudioPath},
		{"transcript", req.TranscriptPath},
		{"output", req.OutputPath},
	} {
		if strings.TrimSpace(field.value) == "" {
			return services.Wrap(services.ErrInvalidInput, StagePreflight, "request", field.name+" path is required", nil)
		}
	}
	if filepath.Clean(req.OutputPath) == filepath.Clean(req.TranscriptPath) {
		return services.Wrap(services.ErrInvalidInput, StagePreflight, "request", "output path would overwrite the transcript", nil)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, StagePreflight, "directories", "", err)
	}
	outDir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return services.Wrap(services.ErrInvalidInput, StagePreflight, "output directory", outDir, err)
	}
	failed := preflight.Failed(preflight.RunAll(r.cfg, outDir))
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, f := range failed {
		details = append(details, f.Name+": "+f.Detail)
	}
	return services.Wrap(services.ErrConfiguration, StagePreflight, "checks", strings.Join(details, "; "), nil)
}

func (r *Runner) logSummary(ctx context.Context, req Request, res *Result) {
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("gating summary",
		logging.String(logging.FieldEventType, "gating_summary"),
		logging.String(logging.FieldTier, string(res.VAD.Tier)),
		logging.String("detector", res.VAD.Detector),
		logging.Bool("degraded", res.VAD.Degraded),
		logging.Bool("bypassed", res.VAD.Bypassed),
		logging.Float64("coverage", res.VAD.Coverage),
		logging.Float64("speech_seconds", res.VAD.SpeechSeconds()),
		logging.Float64("track_seconds", res.TrackSeconds),
		logging.Int("segments_filtered", res.Filtered),
		logging.Int("cues_in", res.Gate.Input),
		logging.Int("cues_out", res.Gate.Output),
		logging.Int("dropped", res.Gate.Dropped),
		logging.Int("merged", res.Gate.Merged),
		logging.Int("passthrough", res.Gate.Passthrough),
		logging.Float64("text_similarity", res.Similarity),
		logging.String("format", string(res.Format)),
		logging.String("output", req.OutputPath),
	)
	if res.VAD.Degraded {
		logging.WarnWithContext(logger, "captions gated against degraded speech timing", "vad_degraded",
			logging.Alert("degraded_vad"),
			logging.String(logging.FieldTier, string(res.VAD.Tier)),
			logging.Bool("bypassed", res.VAD.Bypassed),
			logging.String(logging.FieldImpact, "captions may linger over silence"),
			logging.String(logging.FieldErrorHint, "enable the silero tier or set vad.trust_classical"),
		)
	}
}

func segmentText(segments []transcript.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func cueText(cues []cue.Cue) string {
	parts := make([]string, 0, len(cues))
	for _, c := range cues {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}
