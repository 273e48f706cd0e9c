package probe

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ncecere/bedrock_edge_probe/internal/config"
)

type probeFunc func(ctx context.Context, region string, model config.ModelSpec, mode Mode) Result

// Runner walks the configured region/model table sequentially, probing
// each pair in every enabled mode with a fixed gap between calls.
type Runner struct {
	probe probeFunc
	gap   time.Duration
	modes []Mode
	sleep func(time.Duration)
	log   *slog.Logger
}

// NewRunner constructs a runner over the given prober. A nil logger
// discards progress output.
func NewRunner(prober *Prober, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		probe: prober.Probe,
		gap:   cfg.ProbeGap,
		modes: []Mode{ModeDirect, ModeProxy},
		sleep: time.Sleep,
		log:   logger,
	}
}

// SkipMode removes a mode from the run. At least one mode must remain.
func (r *Runner) SkipMode(mode Mode) {
	kept := r.modes[:0]
	for _, m := range r.modes {
		if m != mode {
			kept = append(kept, m)
		}
	}
	r.modes = kept
}

// Run probes every (region, model) pair in table order. Direct mode runs
// before proxy mode for each pair; a fixed gap elapses after every probe
// to stay clear of throttling. Probe failures are recorded, never fatal.
func (r *Runner) Run(ctx context.Context, regions []config.RegionConfig) *Results {
	results := NewResults()

	seq := 0
	for _, region := range regions {
		for _, model := range region.Models {
			seq++
			key := Key(model.Name, region.Name)
			results.Keys = append(results.Keys, key)
			r.log.Info("probing pair",
				slog.Int("seq", seq),
				slog.String("model", model.Name),
				slog.String("region", region.Name))

			for _, mode := range r.modes {
				result := r.probe(ctx, region.Name, model, mode)
				results.ModeMap(mode)[key] = result
				r.logResult(key, mode, result)
				r.sleep(r.gap)
			}
		}
	}

	return results
}

func (r *Runner) logResult(key string, mode Mode, result Result) {
	if result.Success {
		r.log.Info("probe ok",
			slog.String("pair", key),
			slog.String("mode", string(mode)),
			slog.Duration("elapsed", result.Elapsed),
			slog.Int("input_tokens", int(result.Usage.InputTokens)),
			slog.Int("output_tokens", int(result.Usage.OutputTokens)),
			slog.String("response", result.Snippet))
		return
	}
	r.log.Warn("probe failed",
		slog.String("pair", key),
		slog.String("mode", string(mode)),
		slog.String("kind", result.ErrorKind),
		slog.String("error", result.ErrorMessage))
}
