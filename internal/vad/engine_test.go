package vad

import (
	"context"
	"errors"
	"testing"
	"time"

	"capgate/internal/audio"
	"capgate/internal/logging"
	"capgate/internal/services"
	"capgate/internal/testsupport"
)

type fakeDetector struct {
	tier     Tier
	name     string
	segments []Segment
	err      error
	delay    time.Duration
	panics   bool
	calls    int
}

func (f *fakeDetector) Tier() Tier   { return f.tier }
func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(ctx context.Context, _ *audio.Track) ([]Segment, error) {
	f.calls++
	if f.panics {
		panic("model exploded")
	}
	if f.delay > 0 {
		// Ignores ctx to mimic a runtime that cannot be interrupted.
		time.Sleep(f.delay)
	}
	return f.segments, f.err
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MinTimeout = 50 * time.Millisecond
	opts.TimeoutFactor = 0.001
	return opts
}

func tenSecondTrack() *audio.Track {
	return audio.NewTrack(make([]float32, 10*16000), 16000)
}

func TestEngineUsesFirstSuccessfulTier(t *testing.T) {
	primary := &fakeDetector{tier: TierPrimary, name: "silero", segments: []Segment{{Start: 1, End: 5, Confidence: 0.9}}}
	energy := &fakeDetector{tier: TierEnergy, name: "energy"}
	engine := NewEngine(testOptions(), logging.NewNop(), primary, energy)

	res, err := engine.Detect(context.Background(), tenSecondTrack())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Tier != TierPrimary || res.Degraded || res.Bypassed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if energy.calls != 0 {
		t.Fatal("energy tier should not run after primary succeeds")
	}
	if len(res.Attempts) != 1 || res.Attempts[0].Outcome != OutcomeOK {
		t.Fatalf("unexpected attempts: %+v", res.Attempts)
	}
}

func TestEngineFallsBackInOrder(t *testing.T) {
	primary := &fakeDetector{tier: TierPrimary, name: "silero", err: ErrPrimaryUnavailable}
	classical := &fakeDetector{tier: TierClassical, name: "webrtc", panics: true}
	energy := &fakeDetector{tier: TierEnergy, name: "energy", segments: []Segment{{Start: 0, End: 4, Confidence: 0.6}}}
	engine := NewEngine(testOptions(), logging.NewNop(), primary, classical, energy)

	res, err := engine.Detect(context.Background(), tenSecondTrack())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Tier != TierEnergy || !res.Degraded {
		t.Fatalf("expected degraded energy result, got %+v", res)
	}
	want := []string{OutcomeError, OutcomePanic, OutcomeOK}
	if len(res.Attempts) != len(want) {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	for i, outcome := range want {
		if res.Attempts[i].Outcome != outcome {
			t.Fatalf("attempt %d outcome = %q, want %q", i, res.Attempts[i].Outcome, outcome)
		}
	}
	if primary.calls != 1 || classical.calls != 1 || energy.calls != 1 {
		t.Fatal("each tier must be tried exactly once")
	}
}

func TestEngineAbandonsSlowTier(t *testing.T) {
	slow := &fakeDetector{tier: TierPrimary, name: "silero", delay: 2 * time.Second, segments: []Segment{{Start: 0, End: 9}}}
	energy := &fakeDetector{tier: TierEnergy, name: "energy", segments: []Segment{{Start: 2, End: 6, Confidence: 0.5}}}
	engine := NewEngine(testOptions(), logging.NewNop(), slow, energy)

	started := time.Now()
	res, err := engine.Detect(context.Background(), tenSecondTrack())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("engine waited %s for a slow tier", elapsed)
	}
	if res.Tier != TierEnergy {
		t.Fatalf("expected energy fallback, got %s", res.Tier)
	}
	if res.Attempts[0].Outcome != OutcomeTimeout || !errors.Is(res.Attempts[0].Err, services.ErrTimeout) {
		t.Fatalf("expected timeout attempt, got %+v", res.Attempts[0])
	}
}

func TestEngineTimesOutFinalTier(t *testing.T) {
	slow := &fakeDetector{tier: TierPrimary, name: "silero", delay: 2 * time.Second, segments: []Segment{{Start: 0, End: 9}}}
	opts := testOptions()
	opts.Tiers = []Tier{TierPrimary}
	engine := NewEngine(opts, logging.NewNop(), slow)

	started := time.Now()
	res, err := engine.Detect(context.Background(), tenSecondTrack())
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("engine waited %s for the only tier", elapsed)
	}
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if len(res.Attempts) != 1 || res.Attempts[0].Outcome != OutcomeTimeout {
		t.Fatalf("expected one timed out attempt, got %+v", res.Attempts)
	}
}

func TestEngineBypassesSparseResult(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		mutate   func(*Options)
	}{
		{"no segments", nil, nil},
		{"low coverage", []Segment{{Start: 1, End: 1.5, Confidence: 1}}, nil},
		{"low speech seconds", []Segment{{Start: 1, End: 3, Confidence: 1}}, func(o *Options) { o.BypassMinSpeechSeconds = 5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			if tc.mutate != nil {
				tc.mutate(&opts)
			}
			det := &fakeDetector{tier: TierPrimary, name: "silero", segments: tc.segments}
			res, err := NewEngine(opts, logging.NewNop(), det).Detect(context.Background(), tenSecondTrack())
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if !res.Bypassed || !res.Degraded {
				t.Fatalf("expected bypass, got %+v", res)
			}
			if len(res.Segments) != 1 || res.Segments[0].Start != 0 || res.Segments[0].End != 10 || res.Segments[0].Confidence != 0 {
				t.Fatalf("expected whole-track synthetic segment, got %+v", res.Segments)
			}
		})
	}
}

func TestEngineTrustedClassicalIsNotDegraded(t *testing.T) {
	opts := testOptions()
	opts.TrustClassical = true
	det := &fakeDetector{tier: TierClassical, name: "webrtc", segments: []Segment{{Start: 0, End: 6, Confidence: 1}}}
	res, err := NewEngine(opts, logging.NewNop(), det).Detect(context.Background(), tenSecondTrack())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Degraded {
		t.Fatal("trusted classical tier should not be degraded")
	}
}

func TestEngineFinalTierFailureIsInvariantViolation(t *testing.T) {
	energy := &fakeDetector{tier: TierEnergy, name: "energy", err: errors.New("broken")}
	_, err := NewEngine(testOptions(), logging.NewNop(), energy).Detect(context.Background(), tenSecondTrack())
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestEngineRejectsInvalidTrack(t *testing.T) {
	_, err := NewEngine(testOptions(), nil).Detect(context.Background(), audio.NewTrack(nil, 16000))
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestEngineRespectsTierRestriction(t *testing.T) {
	opts := testOptions()
	opts.Tiers = []Tier{TierEnergy}
	opts.MinTimeout = 10 * time.Second
	engine := NewEngine(opts, nil)
	detectors := engine.Detectors()
	if len(detectors) != 1 || detectors[0].Tier() != TierEnergy {
		t.Fatalf("expected only the energy tier, got %d detectors", len(detectors))
	}

	track := testsupport.SpeechTrack(6, testsupport.Region{Start: 1, End: 2.5}, testsupport.Region{Start: 3.5, End: 5})
	res, err := engine.Detect(context.Background(), track)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Bypassed || len(res.Segments) != 2 {
		t.Fatalf("expected two energy segments, got %+v", res)
	}
}

func TestDefaultDetectorsWithoutSileroReportUnavailable(t *testing.T) {
	if PrimaryAvailable() {
		t.Skip("silero compiled in")
	}
	res, err := NewEngine(testOptions(), nil).Detect(context.Background(), testsupport.SpeechTrack(3, testsupport.Region{Start: 0.5, End: 2.5}))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Tier == TierPrimary {
		t.Fatal("primary tier should not be selected without silero")
	}
	if !errors.Is(res.Attempts[0].Err, ErrPrimaryUnavailable) {
		t.Fatalf("expected primary unavailable attempt, got %+v", res.Attempts[0])
	}
}

func TestTimeoutForUsesFloor(t *testing.T) {
	opts := Options{MinTimeout: 5 * time.Second, TimeoutFactor: 0.5}
	if got := opts.timeoutFor(4); got != 5*time.Second {
		t.Fatalf("timeoutFor(4) = %s", got)
	}
	if got := opts.timeoutFor(60); got != 30*time.Second {
		t.Fatalf("timeoutFor(60) = %s", got)
	}
}
