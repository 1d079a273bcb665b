package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/tradeledger/internal/document"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			status := "ok"
			if event.Error != "" {
				status = event.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Step, event.Op, event.Args, status)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failures.
func (h *Harness) EvaluateAssertions(ctx context.Context, assertions []Assertion, trace []TraceEvent) []error {
	var errs []error
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = h.assertFinalState(ctx, a, trace)
		case AssertAbsent:
			err = h.assertAbsent(ctx, a, trace)
		case AssertHistoryCount:
			err = h.assertHistoryCount(ctx, a, trace)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// assertFinalState decodes the live value under the key and subset-matches
// the expected fields.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion, trace []TraceEvent) error {
	value, ok, err := h.store.Get(ctx, a.Key)
	if err != nil {
		return fmt.Errorf("final_state %s: %w", a.Key, err)
	}
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s to hold %v", a.Key, a.Expect),
			Actual:   "no live value",
			Trace:    trace,
		}
	}

	doc, err := document.Decode(value)
	if err != nil {
		return fmt.Errorf("final_state %s: %w", a.Key, err)
	}
	got, err := canonicalize(doc)
	if err != nil {
		return err
	}
	want, err := canonicalize(a.Expect)
	if err != nil {
		return err
	}
	if !subsetMatch(want, got) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s to hold %v", a.Key, want),
			Actual:   string(value),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertAbsent(ctx context.Context, a Assertion, trace []TraceEvent) error {
	value, ok, err := h.store.Get(ctx, a.Key)
	if err != nil {
		return fmt.Errorf("absent %s: %w", a.Key, err)
	}
	if ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("%s to have no live value", a.Key),
			Actual:   string(value),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertHistoryCount(ctx context.Context, a Assertion, trace []TraceEvent) error {
	count := 0
	for _, err := range h.store.History(ctx, a.Key) {
		if err != nil {
			return fmt.Errorf("history_count %s: %w", a.Key, err)
		}
		count++
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d history entries for %s", a.Count, a.Key),
			Actual:   fmt.Sprintf("%d entries", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that op appears exactly Count times in the trace.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("op %s to appear %d times", a.Op, a.Count),
			Actual:   fmt.Sprintf("appeared %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// subsetMatch reports whether every field of want is present in got with an
// equal value. Objects match recursively; arrays and scalars must be equal.
func subsetMatch(want, got interface{}) bool {
	wantMap, ok := want.(map[string]interface{})
	if !ok {
		return reflect.DeepEqual(want, got)
	}
	gotMap, ok := got.(map[string]interface{})
	if !ok {
		return false
	}
	for key, w := range wantMap {
		g, exists := gotMap[key]
		if !exists || !subsetMatch(w, g) {
			return false
		}
	}
	return true
}
