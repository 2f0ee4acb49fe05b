package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hiscore/internal/model"
)

// RenderTrace produces the golden text form of a result.
//
// One line per flow step, then one indented line per emitted event.
// Players print as scenario aliases; signatures, nonces and event ids are
// left out, so the file reads as the ledger's observable history.
func RenderTrace(scenarioName string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario %s\n", scenarioName)
	for _, ev := range result.Trace {
		fmt.Fprintf(&buf, "[%d] %s", ev.Step, ev.Action)
		if ev.Player != "" {
			fmt.Fprintf(&buf, " %s", ev.Player)
		}
		if ev.Args != "" {
			fmt.Fprintf(&buf, " %s", ev.Args)
		}
		fmt.Fprintf(&buf, " -> %s", ev.Outcome)
		if details := renderDetails(ev.Details); details != "" {
			fmt.Fprintf(&buf, " %s", details)
		}
		buf.WriteByte('\n')
		for _, e := range ev.Events {
			fmt.Fprintf(&buf, "    #%d %s %s %s %s\n", e.Seq, e.TxID, e.Kind, result.alias(e.Player), renderAttrs(e.Attrs))
		}
	}
	return []byte(buf.String())
}

func renderDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, details[k])
	}
	return strings.Join(parts, " ")
}

func renderAttrs(attrs model.Attrs) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, attrs[k])
	}
	return strings.Join(parts, " ")
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, RenderTrace(scenarioName, result))
}
