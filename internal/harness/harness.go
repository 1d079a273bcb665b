package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tradeledger/internal/fault"
	"github.com/roach88/tradeledger/internal/history"
	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/repository"
	"github.com/roach88/tradeledger/internal/store"
	"github.com/roach88/tradeledger/internal/testutil"
	"github.com/roach88/tradeledger/internal/workflow"
)

// Harness holds the services a scenario runs against.
type Harness struct {
	store    *store.Store
	ledger   *repository.Ledger
	workflow *workflow.Service
	history  *history.Service
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Document dates come from a deterministic clock and generated ids from the
// scenario's id list (or a sequential generator), so the trace is
// reproducible.
//
// Execution flow:
// 1. Create fresh in-memory ledger
// 2. Execute steps, checking each expect clause
// 3. Evaluate assertions on the final state
// 4. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	identity := scenario.Identity
	result := NewResult()
	for i, step := range scenario.Steps {
		as := identity
		if step.As != "" {
			as = step.As
		}
		stepCtx := ctx
		if as != "" {
			stepCtx = ledger.WithSubmitter(ctx, as)
		}
		if err := h.executeStep(stepCtx, i, step, result); err != nil {
			return result, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for _, err := range h.EvaluateAssertions(ctx, scenario.Assertions, result.Trace) {
		result.AddError(err.Error())
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	// The store gets its own clock so history timestamps do not shift
	// document dates.
	st, err := store.Open(":memory:", store.WithClock(testutil.NewDeterministicClock().Now), store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	clock := testutil.NewDeterministicClock()
	var ids workflow.IDGenerator = testutil.NewSequentialIDGenerator()
	if len(scenario.IDs) > 0 {
		ids = workflow.NewFixedGenerator(scenario.IDs...)
	}

	l := repository.New(st, repository.WithClock(clock.Now), repository.WithLogger(logger))
	wf, err := workflow.New(l,
		workflow.WithIDGenerator(ids),
		workflow.WithClock(clock.Now),
		workflow.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Harness{
		store:    st,
		ledger:   l,
		workflow: wf,
		history:  history.New(st),
		logger:   logger,
	}, nil
}

// executeStep runs one step, records it in the trace and checks its expect
// clause. A returned error aborts the scenario; expectation mismatches are
// recorded on result instead.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	op := ops[step.Op]
	out, opErr := op(ctx, h, args(step.Args))

	event := TraceEvent{Step: index, Op: step.Op, Args: step.Args}
	if opErr != nil {
		code := fault.CodeOf(opErr)
		if code == "" {
			// Not a ledger fault: a broken backend or a malformed step.
			return opErr
		}
		event.Error = string(code)
	} else {
		canonical, err := canonicalize(out)
		if err != nil {
			return err
		}
		event.Result = canonical
	}
	result.AddTrace(event)

	expect := step.Expect
	if expect == nil {
		expect = &Expect{}
	}
	if event.Error != expect.Error {
		result.AddError(fmt.Sprintf("step %d (%s): expected error %q, got %q", index, step.Op, expect.Error, event.Error))
		return nil
	}
	if len(expect.Result) > 0 {
		want, err := canonicalize(expect.Result)
		if err != nil {
			return err
		}
		if !subsetMatch(want, event.Result) {
			result.AddError(fmt.Sprintf("step %d (%s): result %v does not match %v", index, step.Op, event.Result, want))
		}
	}
	return nil
}

// canonicalize round-trips v through JSON so that results and YAML
// expectations compare as the same generic types.
func canonicalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}
