package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"capgate/internal/config"
	"capgate/internal/deps"
	"capgate/internal/vad"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTierSelection verifies that the configured tier list parses and
// enables at least one tier that can run in this build.
func CheckTierSelection(cfg *config.Config) Result {
	const name = "VAD tiers"

	opts, err := vad.OptionsFromConfig(cfg.VAD)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	var usable []string
	for _, tier := range selectedTiers(opts) {
		if tier == vad.TierPrimary && !vad.PrimaryAvailable() {
			continue
		}
		usable = append(usable, string(tier))
	}
	if len(usable) == 0 {
		return Result{Name: name, Detail: "no enabled tier is available in this build"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(usable, " -> ")}
}

// CheckTiers reports readiness for every tier in fallback order. Disabled
// tiers pass with a "Disabled" detail.
func CheckTiers(cfg *config.Config) []Result {
	opts, err := vad.OptionsFromConfig(cfg.VAD)
	if err != nil {
		return []Result{{Name: "VAD tiers", Detail: err.Error()}}
	}
	enabled := make(map[vad.Tier]bool)
	for _, tier := range selectedTiers(opts) {
		enabled[tier] = true
	}

	results := make([]Result, 0, len(vad.Tiers))
	for _, tier := range vad.Tiers {
		name := "Tier " + string(tier)
		if !enabled[tier] {
			results = append(results, Result{Name: name, Passed: true, Detail: "Disabled"})
			continue
		}
		results = append(results, checkTier(tier, cfg.VAD))
	}
	return results
}

func checkTier(tier vad.Tier, cfg config.VAD) Result {
	name := "Tier " + string(tier)
	switch tier {
	case vad.TierPrimary:
		if !vad.PrimaryAvailable() {
			return Result{Name: name, Detail: "silero not compiled in (build with -tags silero)"}
		}
		if _, err := vad.ResolveORTLibrary(cfg.ORTLibraryPath); err != nil {
			return Result{Name: name, Detail: err.Error()}
		}
		if strings.TrimSpace(cfg.ModelPath) == "" {
			return Result{Name: name, Detail: "vad.model_path not set"}
		}
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("model %s not found", cfg.ModelPath)}
		}
		return Result{Name: name, Passed: true, Detail: "silero (" + cfg.ModelPath + ")"}
	case vad.TierClassical:
		backend, err := vad.ClassicalBackend(cfg.ClassicalMode)
		if err != nil {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s fallback (%v)", backend, err)}
		}
		detail := fmt.Sprintf("%s mode %d", backend, cfg.ClassicalMode)
		if !cfg.TrustClassical {
			detail += ", results marked degraded"
		}
		return Result{Name: name, Passed: true, Detail: detail}
	default:
		return Result{Name: name, Passed: true, Detail: "Ready"}
	}
}

func selectedTiers(opts vad.Options) []vad.Tier {
	if len(opts.Tiers) == 0 {
		return vad.Tiers
	}
	return opts.Tiers
}

// CheckSystemDeps evaluates the external tools and libraries for the given
// config. The ONNX Runtime library is required only when the primary tier
// is compiled in and enabled.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries([]deps.Requirement{deps.FFmpegRequirement(cfg.FFmpegBinary())})

	opts, err := vad.OptionsFromConfig(cfg.VAD)
	if err != nil || !vad.PrimaryAvailable() {
		return statuses
	}
	for _, tier := range selectedTiers(opts) {
		if tier != vad.TierPrimary {
			continue
		}
		path, resolveErr := vad.ResolveORTLibrary(cfg.VAD.ORTLibraryPath)
		statuses = append(statuses, deps.CheckFile(
			"ONNX Runtime",
			path,
			"Runs the Silero speech model",
			false,
			resolveErr,
		))
	}
	return statuses
}
