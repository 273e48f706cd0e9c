package main

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ncecere/bedrock_edge_probe/internal/config"
	"github.com/ncecere/bedrock_edge_probe/internal/probe"
	"github.com/ncecere/bedrock_edge_probe/internal/report"
)

func newRunCommand() *cobra.Command {
	var (
		configFile string
		envFile    string
		verbose    bool
		skipDirect bool
		skipProxy  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Probe every configured model directly and through the CDN proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if skipDirect && skipProxy {
				return errors.New("--skip-direct and --skip-proxy cannot both be set")
			}

			cfg, err := config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			prober := probe.New(cfg)
			runner := probe.NewRunner(prober, cfg, logger)
			if skipDirect {
				runner.SkipMode(probe.ModeDirect)
			}
			if skipProxy {
				runner.SkipMode(probe.ModeProxy)
			}

			runID := uuid.NewString()
			reporter := report.New(cmd.OutOrStdout())
			reporter.Banner(runID, cfg.ProxyEndpoint, time.Now())

			ctx := cmd.Context()
			if arn, err := prober.Preflight(ctx); err != nil {
				logger.Warn("preflight identity check failed", slog.String("error", err.Error()))
			} else {
				logger.Info("aws identity resolved", slog.String("arn", arn), slog.String("run_id", runID))
			}

			results := runner.Run(ctx, cfg.Regions)
			reporter.Table(results)
			reporter.Summary(results)

			// Probe failures are informational; only config/usage errors
			// change the exit code.
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to an edgeprobe YAML config file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "path to a dotenv file to load before reading config")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each probe as it runs")
	cmd.Flags().BoolVar(&skipDirect, "skip-direct", false, "skip the direct (no proxy) probes")
	cmd.Flags().BoolVar(&skipProxy, "skip-proxy", false, "skip the CDN proxy probes")
	return cmd
}
