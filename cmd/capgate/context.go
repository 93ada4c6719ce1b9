package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"capgate/internal/config"
	"capgate/internal/logging"
	"capgate/internal/observe"
	"capgate/internal/pipeline"
	"capgate/internal/services"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	tiersFlag    *[]string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, tiersFlag *[]string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		tiersFlag:    tiersFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if c.tiersFlag != nil && len(*c.tiersFlag) > 0 {
			tiers, err := config.NormalizeTiers(*c.tiersFlag)
			if err != nil {
				c.configErr = services.Wrap(services.ErrConfiguration, "config", "--tiers", "", err)
				return
			}
			cfg.VAD.Tiers = tiers
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// newRunner builds a pipeline runner and, when metrics are enabled, an
// OpenTelemetry provider whose values are written to the textfile by the
// returned cleanup.
func (c *commandContext) newRunner(cmd *cobra.Command, opts ...pipeline.Option) (*pipeline.Runner, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	if cfg.Metrics.Enabled {
		provider, err := observe.InitProvider(cmd.Context(), observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			return nil, nil, err
		}
		metrics, err := observe.NewMetrics(provider.MeterProvider)
		if err != nil {
			_ = provider.Shutdown(cmd.Context())
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithMetrics(metrics))
		cleanup = func() {
			flushTelemetry(logger, provider, cfg.Metrics.TextfilePath)
		}
	}

	runner, err := pipeline.New(cfg, logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return runner, cleanup, nil
}

func flushTelemetry(logger *slog.Logger, provider *observe.Provider, path string) {
	if err := provider.WriteTextfile(path); err != nil {
		logging.WarnWithContext(logger, "failed to write metrics textfile", "metrics_export_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "metrics for this invocation are lost"),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
		)
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		logger.Debug("telemetry shutdown failed", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
