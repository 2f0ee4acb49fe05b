package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscore/internal/store"
)

// AuditOutput wraps an audit report with its text form.
type AuditOutput struct {
	store.AuditReport
}

// Text renders the summary and any mismatches.
func (a AuditOutput) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "events %d, players %d, skins %d, last seq %d\n", a.Events, a.Players, a.Skins, a.LastSeq)
	if a.OK() {
		b.WriteString("✓ event log matches ledger state\n")
		return b.String()
	}
	for _, m := range a.Mismatches {
		fmt.Fprintf(&b, "✗ %s\n", m)
	}
	return b.String()
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Replay the event log and verify ledger state",
		Long: `Replay every event in seq order and compare the derived registry and
skin entitlements with the stored tables. Event ids are re-derived from
content, so edits to the log are detected.

Exit codes:
  0 - Log and state agree
  1 - Mismatches found
  2 - Command error (database not found, etc.)

Examples:
  hiscore audit --db ./hiscore.db
  hiscore audit --db ./hiscore.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runAudit(opts *LedgerOptions, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath(opts.Database, cfg))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	report, err := st.Audit(commandContext(cmd.Context()))
	if err != nil {
		return WrapExitError(ExitCommandError, "audit failed", err)
	}

	f := opts.Formatter(cmd)
	if report.OK() {
		return f.Success(AuditOutput{report})
	}
	if f.Format == "json" {
		if err := f.Error("E_AUDIT_MISMATCH", fmt.Sprintf("%d mismatch(es)", len(report.Mismatches)), report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), AuditOutput{report}.Text())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d mismatch(es)", len(report.Mismatches)))
}
