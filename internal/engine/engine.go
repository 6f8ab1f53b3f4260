package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/gv-guard/internal/eval"
	"github.com/danielpatrickdp/gv-guard/internal/monitor"
	"github.com/danielpatrickdp/gv-guard/internal/observer"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
	"github.com/danielpatrickdp/gv-guard/internal/scenario"
)

// #region engine-struct
// Engine drives series through monitor, classifier and counters. It holds
// no per-run state, so one Engine can run many series at once.
type Engine struct {
	config     Config
	classifier *policy.Classifier
	evaluator  *eval.EvalHarness
	sink       Sink
	recorder   Recorder
	log        zerolog.Logger
}

// Deps are the optional collaborators of an Engine.
type Deps struct {
	Sink     Sink
	Recorder Recorder
	Logger   *zerolog.Logger
}

// #endregion engine-struct

// #region constructor
// New validates every stage of config and builds an Engine.
func New(config Config, deps Deps) (*Engine, error) {
	if err := monitor.ValidateConfig(config.Monitor); err != nil {
		return nil, err
	}
	for name, o := range config.MonitorOverrides {
		if err := monitor.ValidateConfig(o.Apply(config.Monitor)); err != nil {
			return nil, fmt.Errorf("monitor override %s: %w", name, err)
		}
	}

	var rules []policy.Rule
	switch config.RuleSet {
	case "", RuleSetDefault:
		rules = policy.DefaultRules(config.Policy)
	case RuleSetTiered:
		rules = policy.TieredRules(config.Policy)
	default:
		return nil, fmt.Errorf("%w: unknown rule set %q", policy.ErrInvalidConfig, config.RuleSet)
	}
	classifier, err := policy.NewClassifierWithRules(config.Policy, rules)
	if err != nil {
		return nil, err
	}

	if err := config.Stability.Validate(); err != nil {
		return nil, err
	}
	if _, err := observer.NewEntropyObserver(config.Entropy); err != nil {
		return nil, err
	}
	if _, err := observer.NewRecoverabilityVelocity(config.RecVelocity); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Engine{
		config:     config,
		classifier: classifier,
		evaluator:  eval.NewEvalHarness(config.Eval),
		sink:       deps.Sink,
		recorder:   deps.Recorder,
		log:        logger.With().Str("component", "engine").Logger(),
	}, nil
}

// #endregion constructor

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// MonitorConfig returns the monitor settings used for scenario.
func (e *Engine) MonitorConfig(scenario string) monitor.Config {
	if o, ok := e.config.MonitorOverrides[scenario]; ok {
		return o.Apply(e.config.Monitor)
	}
	return e.config.Monitor
}

// Classifier returns the classifier built from the configured rule set.
func (e *Engine) Classifier() *policy.Classifier {
	return e.classifier
}

// #region run
// Run processes series step by step. It stops early on SAFE_REFUSAL or
// when ctx is cancelled; in the latter case the partial result is
// returned with ctx's error.
func (e *Engine) Run(ctx context.Context, series scenario.Series) (Result, error) {
	if err := series.Validate(); err != nil {
		return Result{}, err
	}
	started := time.Now()
	log := e.log.With().Str("scenario", series.Name).Logger()

	sess, err := e.NewSession(series.Name)
	if err != nil {
		return Result{}, err
	}

	runID := ""
	if e.sink != nil {
		runID, err = e.sink.BeginRun(ctx, series.Name)
		if err != nil {
			return Result{}, fmt.Errorf("begin run %s: %w", series.Name, err)
		}
	}
	log = log.With().Str("run_id", runID).Logger()
	log.Info().Int("steps", series.Len()).Msg("run started")

	rows := make([]StepRow, 0, series.Len())
	for i := 0; i < series.Len(); i++ {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("step", i+1).Msg("run cancelled")
			sum := finish(sess, runID, started)
			sum.Cancelled = true
			e.closeRun(ctx, runID, sum, log)
			return Result{Summary: sum, Rows: rows}, err
		}

		row := sess.Step(series.Global[i], series.Local[i], series.Recoverability[i])
		if row.Substituted {
			log.Warn().Int("step", row.Step).Msg("non-finite input replaced")
		}
		rows = append(rows, row)

		if e.recorder != nil {
			e.recorder.ObserveStep(series.Name, row.Decision, row.Substituted)
		}
		if e.sink != nil {
			if err := e.sink.WriteStep(ctx, runID, row); err != nil {
				sum := finish(sess, runID, started)
				e.closeRun(ctx, runID, sum, log)
				return Result{Summary: sum, Rows: rows},
					fmt.Errorf("write step %d of %s: %w", row.Step, series.Name, err)
			}
		}

		if row.Decision.Action.Halts() {
			log.Warn().
				Int("step", row.Step).
				Str("reason", string(row.Decision.Reason)).
				Float64("recoverability", row.Recoverability).
				Float64("cum_drift", row.Aggregate.CumulativeAbsDrift).
				Float64("peak_velocity", row.Aggregate.PeakAbsVelocity).
				Msg("safe refusal, halting run")
			break
		}
	}

	sum := finish(sess, runID, started)
	if e.sink != nil {
		if err := e.sink.FinishRun(ctx, runID, sum); err != nil {
			return Result{Summary: sum, Rows: rows}, fmt.Errorf("finish run %s: %w", series.Name, err)
		}
	}
	if e.recorder != nil {
		e.recorder.ObserveRun(series.Name, sum.GoodnessRatio, sum.PeakAbsVelocity, sum.Halted, sum.Elapsed)
	}

	log.Info().
		Int("steps", sum.Steps).
		Float64("goodness_ratio", sum.GoodnessRatio).
		Str("bin", string(sum.Bin)).
		Bool("halted", sum.Halted).
		Msg("run finished")

	return Result{Summary: sum, Rows: rows}, nil
}

// closeRun finishes a run that is stopping early so its runs row is not
// left open. It runs on an uncancelled context and only logs failures.
func (e *Engine) closeRun(ctx context.Context, runID string, sum Summary, log zerolog.Logger) {
	if e.sink == nil {
		return
	}
	if err := e.sink.FinishRun(context.WithoutCancel(ctx), runID, sum); err != nil {
		log.Error().Err(err).Msg("finish stopped run")
	}
}

func finish(sess *Session, runID string, started time.Time) Summary {
	sum := sess.Summary()
	sum.RunID = runID
	sum.Elapsed = time.Since(started)
	return sum
}

// #endregion run

// #region run-all
// RunAll runs every series on its own goroutine with private state and
// returns results in input order. parallelism <= 0 means unbounded.
// The first error cancels the remaining runs.
func (e *Engine) RunAll(ctx context.Context, series []scenario.Series, parallelism int) ([]Result, error) {
	results := make([]Result, len(series))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, s := range series {
		g.Go(func() error {
			res, err := e.Run(gctx, s)
			if err != nil {
				return fmt.Errorf("run %s: %w", s.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// #endregion run-all
