package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/ranking"
	"github.com/roach88/hiscore/internal/store"
)

// AssertionContext holds what assertions query against.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Ranking *ranking.Engine
	Players map[string]model.Address
}

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

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s -> %s\n", ev.Step, ev.Action, ev.Player, ev.Args, ev.Outcome)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}
	ctx := actx.Ctx
	addr := actx.Players[a.Player]

	switch a.Type {
	case AssertPlayerCount:
		n, err := actx.Ranking.PlayerCount(ctx)
		if err != nil {
			return err
		}
		if n != uint64(a.Count) {
			return fail(fmt.Sprintf("player_count %d", a.Count), fmt.Sprintf("player_count %d", n))
		}

	case AssertScoreOf:
		got, err := actx.Ranking.ScoreOf(ctx, addr)
		if err != nil {
			return err
		}
		if got != a.Score {
			return fail(fmt.Sprintf("score_of(%s) = %d", a.Player, a.Score), fmt.Sprintf("%d", got))
		}

	case AssertHasPlayed:
		got, err := actx.Ranking.HasPlayed(ctx, addr)
		if err != nil {
			return err
		}
		if got != a.Value {
			return fail(fmt.Sprintf("has_played(%s) = %t", a.Player, a.Value), fmt.Sprintf("%t", got))
		}

	case AssertHasSkin:
		got, err := actx.Store.HasSkin(ctx, addr, a.Skin)
		if err != nil {
			return err
		}
		if got != a.Value {
			return fail(fmt.Sprintf("has_skin(%s, %d) = %t", a.Player, a.Skin, a.Value), fmt.Sprintf("%t", got))
		}

	case AssertTopScores, AssertPlayersPage:
		var (
			addrs  []model.Address
			scores []uint64
			err    error
		)
		if a.Type == AssertTopScores {
			addrs, scores, err = actx.Ranking.TopScores(ctx, a.Limit)
		} else {
			addrs, scores, err = actx.Ranking.PlayersPage(ctx, a.Offset, a.Limit)
		}
		if a.Error != "" {
			if !model.HasCode(err, model.Code(a.Error)) {
				return fail(a.Error, fmt.Sprintf("%v", err))
			}
			return nil
		}
		if err != nil {
			return err
		}
		want := make([]string, len(a.Entries))
		for i, e := range a.Entries {
			want[i] = fmt.Sprintf("%s:%d", e.Player, e.Score)
		}
		got := make([]string, len(addrs))
		for i := range addrs {
			got[i] = fmt.Sprintf("%s:%d", result.alias(addrs[i]), scores[i])
		}
		if strings.Join(want, " ") != strings.Join(got, " ") {
			return fail("["+strings.Join(want, " ")+"]", "["+strings.Join(got, " ")+"]")
		}

	case AssertEventCount:
		events, err := actx.Store.ReadEvents(ctx, 0, 0)
		if err != nil {
			return err
		}
		n := 0
		for _, ev := range events {
			if a.Kind == "*" || string(ev.Kind) == a.Kind {
				n++
			}
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%d %s events", a.Count, a.Kind), fmt.Sprintf("%d", n))
		}

	case AssertAudit:
		report, err := actx.Store.Audit(ctx)
		if err != nil {
			return err
		}
		if !report.OK() {
			return fail("clean audit", strings.Join(report.Mismatches, "; "))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// checkExpect compares a traced step with its expect clause.
// Result keys are a subset match; values compare by their printed form so
// YAML integers match uint64 details.
func checkExpect(expect *ExpectClause, ev TraceEvent) string {
	if expect.Case != ev.Outcome {
		return fmt.Sprintf("expected case %s, got %s", expect.Case, ev.Outcome)
	}
	for key, want := range expect.Result {
		got, ok := ev.Details[key]
		if !ok {
			return fmt.Sprintf("result.%s missing", key)
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return fmt.Sprintf("result.%s: expected %v, got %v", key, want, got)
		}
	}
	return ""
}
