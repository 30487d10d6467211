// Package executor runs an ordered chain of abstract steps against a
// request-scoped context. Steps with no data dependency on earlier output
// are dispatched concurrently and joined at a barrier; dependent steps run
// strictly in chain order, each fed the previous step's output. Every step
// is wrapped in a primary-then-fallbacks retry chain; intermediate
// failures are logged, never thrown, and only total exhaustion of a step's
// strategies escalates.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/analyzer"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/reqctx"
)

// StepInput is what a step sees when it runs. Value carries the previous
// step's output (nil for the first step); State accumulates every step's
// output keyed by operation name so steps after a fan-in barrier can read
// all branch results.
type StepInput struct {
	Analysis  *analyzer.QueryAnalysis
	ProjectID int64
	Value     interface{}
	State     map[string]interface{}
}

// Output reads a prior step's output out of the accumulated state.
func (in *StepInput) Output(operation string) (interface{}, bool) {
	v, ok := in.State[operation]
	return v, ok
}

// StepFunc is one strategy for producing a step's output.
type StepFunc func(ctx context.Context, rc *reqctx.Context, in *StepInput) (interface{}, error)

// Strategy pairs a StepFunc with a name for the call log.
type Strategy struct {
	Name string
	Run  StepFunc
}

// Step is one abstract operation bound to a primary strategy and an
// ordered list of degraded alternatives.
type Step struct {
	Operation string
	Primary   Strategy
	Fallbacks []Strategy

	// NeedsPrior declares a data dependency on earlier output. Adjacent
	// steps without one form a parallel group.
	NeedsPrior bool
}

// StepResult records how one step concluded.
type StepResult struct {
	Operation  string
	Strategy   string // strategy that produced the output
	Output     interface{}
	Err        error
	DurationMs int64
}

// ExhaustedFallbacksError is the only failure that propagates out of a
// chain: the step's primary and every fallback failed.
type ExhaustedFallbacksError struct {
	Operation    string
	PrimaryErr   error
	FallbackErrs []error
}

func (e *ExhaustedFallbacksError) Error() string {
	parts := make([]string, 0, len(e.FallbackErrs))
	for _, err := range e.FallbackErrs {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("step %s exhausted all strategies: primary: %v; fallbacks: [%s]",
		e.Operation, e.PrimaryErr, strings.Join(parts, "; "))
}

func (e *ExhaustedFallbacksError) Unwrap() error {
	return e.PrimaryErr
}

// Executor schedules chains.
type Executor struct {
	registry map[string]Step
	logger   *zap.Logger
}

// New builds an executor over a step registry.
func New(registry map[string]Step, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute runs the chain. On a parallel group every member runs its own
// fallback chain; a member that exhausts its strategies fails alone and
// the barrier still releases, unless every member failed, in which case
// the first member's exhaustion propagates. On the sequential path an
// exhausted step aborts the chain immediately: no later step runs.
func (e *Executor) Execute(ctx context.Context, rc *reqctx.Context, chain []string, initial *StepInput) ([]StepResult, error) {
	if initial.State == nil {
		initial.State = make(map[string]interface{})
	}

	steps, err := e.resolve(chain)
	if err != nil {
		return nil, err
	}

	var results []StepResult
	for i := 0; i < len(steps); {
		group := parallelGroupAt(steps, i)

		if len(group) > 1 {
			groupResults, err := e.runGroup(ctx, rc, group, initial)
			results = append(results, groupResults...)
			if err != nil {
				return results, err
			}
			// Value after the barrier is the output of the group's last
			// member in chain order.
			for j := len(groupResults) - 1; j >= 0; j-- {
				if groupResults[j].Err == nil {
					initial.Value = groupResults[j].Output
					break
				}
			}
			i += len(group)
			continue
		}

		result := e.runWithFallbacks(ctx, rc, steps[i], initial)
		results = append(results, result)
		if result.Err != nil {
			return results, result.Err
		}
		initial.State[steps[i].Operation] = result.Output
		initial.Value = result.Output
		i++
	}
	return results, nil
}

func (e *Executor) resolve(chain []string) ([]Step, error) {
	steps := make([]Step, 0, len(chain))
	for _, operation := range chain {
		step, ok := e.registry[operation]
		if !ok {
			return nil, fmt.Errorf("unknown chain step %q", operation)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// parallelGroupAt collects the run of independent steps starting at i.
// The first step of a chain never needs prior output by construction, so
// a group grows while subsequent steps are also independent.
func parallelGroupAt(steps []Step, i int) []Step {
	if steps[i].NeedsPrior {
		return steps[i : i+1]
	}
	end := i + 1
	for end < len(steps) && !steps[end].NeedsPrior {
		end++
	}
	return steps[i:end]
}

// runGroup fans the group out, waits for all members (fan-in barrier) and
// merges outputs into the shared state.
func (e *Executor) runGroup(ctx context.Context, rc *reqctx.Context, group []Step, in *StepInput) ([]StepResult, error) {
	results := make([]StepResult, len(group))

	g, gctx := errgroup.WithContext(ctx)
	for i := range group {
		i := i
		member := StepInput{
			Analysis:  in.Analysis,
			ProjectID: in.ProjectID,
			Value:     in.Value,
			State:     in.State, // reads only; writes happen after the barrier
		}
		g.Go(func() error {
			results[i] = e.runWithFallbacks(gctx, rc, group[i], &member)
			return nil // member failures do not cancel siblings
		})
	}
	g.Wait()

	failures := 0
	for i := range results {
		if results[i].Err != nil {
			failures++
			continue
		}
		in.State[group[i].Operation] = results[i].Output
	}
	if failures == len(group) {
		return results, results[0].Err
	}
	return results, nil
}

// runWithFallbacks tries the primary strategy, then each fallback in
// order. Intermediate failures are logged at warn level; only full
// exhaustion returns an error.
func (e *Executor) runWithFallbacks(ctx context.Context, rc *reqctx.Context, step Step, in *StepInput) StepResult {
	start := time.Now()

	output, primaryErr := step.Primary.Run(ctx, rc, in)
	if primaryErr == nil {
		return StepResult{
			Operation:  step.Operation,
			Strategy:   step.Primary.Name,
			Output:     output,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	e.logger.Warn("step primary strategy failed, trying fallbacks",
		zap.String("operation", step.Operation),
		zap.String("strategy", step.Primary.Name),
		zap.Int("fallbacks", len(step.Fallbacks)),
		zap.Error(primaryErr))

	fallbackErrs := make([]error, 0, len(step.Fallbacks))
	for _, fallback := range step.Fallbacks {
		output, err := fallback.Run(ctx, rc, in)
		if err == nil {
			e.logger.Info("step recovered via fallback",
				zap.String("operation", step.Operation),
				zap.String("strategy", fallback.Name))
			return StepResult{
				Operation:  step.Operation,
				Strategy:   fallback.Name,
				Output:     output,
				DurationMs: time.Since(start).Milliseconds(),
			}
		}
		e.logger.Warn("step fallback strategy failed",
			zap.String("operation", step.Operation),
			zap.String("strategy", fallback.Name),
			zap.Error(err))
		fallbackErrs = append(fallbackErrs, fmt.Errorf("%s: %w", fallback.Name, err))
	}

	return StepResult{
		Operation:  step.Operation,
		DurationMs: time.Since(start).Milliseconds(),
		Err: &ExhaustedFallbacksError{
			Operation:    step.Operation,
			PrimaryErr:   primaryErr,
			FallbackErrs: fallbackErrs,
		},
	}
}
