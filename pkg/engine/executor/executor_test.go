package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/reqctx"
)

func newTestContext() *reqctx.Context {
	return reqctx.New(basecamp.NewMemoryClient(), "test query")
}

func constant(v interface{}) StepFunc {
	return func(context.Context, *reqctx.Context, *StepInput) (interface{}, error) {
		return v, nil
	}
}

func failing(msg string) StepFunc {
	return func(context.Context, *reqctx.Context, *StepInput) (interface{}, error) {
		return nil, errors.New(msg)
	}
}

func TestExecuteSequentialChain(t *testing.T) {
	registry := map[string]Step{
		"first": {Operation: "first", Primary: Strategy{Name: "p1", Run: constant("a")}},
		"second": {
			Operation:  "second",
			NeedsPrior: true,
			Primary: Strategy{Name: "p2", Run: func(_ context.Context, _ *reqctx.Context, in *StepInput) (interface{}, error) {
				prev, _ := in.Value.(string)
				return prev + "b", nil
			}},
		},
	}
	exec := New(registry, nil)

	results, err := exec.Execute(context.Background(), newTestContext(), []string{"first", "second"}, &StepInput{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[1].Output != "ab" {
		t.Errorf("second output = %v, want ab", results[1].Output)
	}
}

func TestExecuteFallbackRecovery(t *testing.T) {
	registry := map[string]Step{
		"flaky": {
			Operation: "flaky",
			Primary:   Strategy{Name: "primary", Run: failing("upstream down")},
			Fallbacks: []Strategy{
				{Name: "degraded", Run: constant("recovered")},
			},
		},
	}
	exec := New(registry, nil)

	results, err := exec.Execute(context.Background(), newTestContext(), []string{"flaky"}, &StepInput{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results[0].Strategy != "degraded" {
		t.Errorf("strategy = %q, want degraded", results[0].Strategy)
	}
	if results[0].Output != "recovered" {
		t.Errorf("output = %v, want recovered", results[0].Output)
	}
}

func TestExecuteExhaustionAbortsChain(t *testing.T) {
	var laterRan int32
	registry := map[string]Step{
		"doomed": {
			Operation: "doomed",
			Primary:   Strategy{Name: "primary", Run: failing("primary boom")},
			Fallbacks: []Strategy{
				{Name: "fb1", Run: failing("fb1 boom")},
				{Name: "fb2", Run: failing("fb2 boom")},
			},
		},
		"later": {
			Operation:  "later",
			NeedsPrior: true,
			Primary: Strategy{Name: "p", Run: func(context.Context, *reqctx.Context, *StepInput) (interface{}, error) {
				atomic.AddInt32(&laterRan, 1)
				return nil, nil
			}},
		},
	}
	exec := New(registry, nil)

	results, err := exec.Execute(context.Background(), newTestContext(), []string{"doomed", "later"}, &StepInput{})
	if err == nil {
		t.Fatal("Execute succeeded, want exhaustion error")
	}

	var exhausted *ExhaustedFallbacksError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ExhaustedFallbacksError", err)
	}
	if exhausted.Operation != "doomed" {
		t.Errorf("Operation = %q, want doomed", exhausted.Operation)
	}
	if len(exhausted.FallbackErrs) != 2 {
		t.Errorf("FallbackErrs = %d, want 2", len(exhausted.FallbackErrs))
	}
	if exhausted.Unwrap() == nil || exhausted.Unwrap().Error() != "primary boom" {
		t.Errorf("Unwrap = %v, want primary boom", exhausted.Unwrap())
	}
	if atomic.LoadInt32(&laterRan) != 0 {
		t.Error("later step ran after chain aborted")
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestExecuteParallelGroup(t *testing.T) {
	registry := map[string]Step{
		"left":  {Operation: "left", Primary: Strategy{Name: "p", Run: constant("L")}},
		"right": {Operation: "right", Primary: Strategy{Name: "p", Run: constant("R")}},
		"join": {
			Operation:  "join",
			NeedsPrior: true,
			Primary: Strategy{Name: "p", Run: func(_ context.Context, _ *reqctx.Context, in *StepInput) (interface{}, error) {
				l, _ := in.Output("left")
				r, _ := in.Output("right")
				return l.(string) + r.(string), nil
			}},
		},
	}
	exec := New(registry, nil)

	in := &StepInput{}
	results, err := exec.Execute(context.Background(), newTestContext(), []string{"left", "right", "join"}, in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[2].Output != "LR" {
		t.Errorf("join output = %v, want LR", results[2].Output)
	}
	// Value after the barrier is the group's last member in chain order.
	if in.State["right"] != "R" || in.State["left"] != "L" {
		t.Errorf("group outputs missing from state: %v", in.State)
	}
}

func TestParallelGroupPartialFailure(t *testing.T) {
	registry := map[string]Step{
		"good": {Operation: "good", Primary: Strategy{Name: "p", Run: constant("ok")}},
		"bad":  {Operation: "bad", Primary: Strategy{Name: "p", Run: failing("nope")}},
		"join": {
			Operation:  "join",
			NeedsPrior: true,
			Primary: Strategy{Name: "p", Run: func(_ context.Context, _ *reqctx.Context, in *StepInput) (interface{}, error) {
				v, ok := in.Output("good")
				if !ok {
					return nil, errors.New("good output missing")
				}
				return v, nil
			}},
		},
	}
	exec := New(registry, nil)

	results, err := exec.Execute(context.Background(), newTestContext(), []string{"good", "bad", "join"}, &StepInput{})
	if err != nil {
		t.Fatalf("one failed member must not fail the group: %v", err)
	}
	if results[len(results)-1].Output != "ok" {
		t.Errorf("join output = %v, want ok", results[len(results)-1].Output)
	}
}

func TestParallelGroupTotalFailure(t *testing.T) {
	registry := map[string]Step{
		"bad1": {Operation: "bad1", Primary: Strategy{Name: "p", Run: failing("one")}},
		"bad2": {Operation: "bad2", Primary: Strategy{Name: "p", Run: failing("two")}},
	}
	exec := New(registry, nil)

	_, err := exec.Execute(context.Background(), newTestContext(), []string{"bad1", "bad2"}, &StepInput{})
	if err == nil {
		t.Fatal("Execute succeeded, want error when every group member failed")
	}
	var exhausted *ExhaustedFallbacksError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ExhaustedFallbacksError", err)
	}
	if exhausted.Operation != "bad1" {
		t.Errorf("Operation = %q, want bad1 (first member in chain order)", exhausted.Operation)
	}
}

func TestExecuteUnknownStep(t *testing.T) {
	exec := New(map[string]Step{}, nil)
	_, err := exec.Execute(context.Background(), newTestContext(), []string{"ghost"}, &StepInput{})
	if err == nil {
		t.Fatal("Execute succeeded with unknown step")
	}
}
