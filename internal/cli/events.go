package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscore/internal/model"
)

// EventsOutput is the result of the events command.
type EventsOutput struct {
	Events []model.Event `json:"events"`
}

// Text renders one line per event.
func (e EventsOutput) Text() string {
	if len(e.Events) == 0 {
		return "no events\n"
	}
	var b strings.Builder
	for _, ev := range e.Events {
		keys := make([]string, 0, len(ev.Attrs))
		for k := range ev.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make([]string, len(keys))
		for i, k := range keys {
			attrs[i] = fmt.Sprintf("%s=%d", k, ev.Attrs[k])
		}
		fmt.Fprintf(&b, "#%d %s %s %s %s\n", ev.Seq, ev.TxID, ev.Kind, ev.Player, strings.Join(attrs, " "))
	}
	return b.String()
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}
	var after int64
	var limit uint64

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List ledger events in seq order",
		Long: `List FirstAppearance, ScoreImproved and SkinGranted events.

Example:
  hiscore events --db ./hiscore.db --after 120 --limit 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.Formatter(cmd)
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			events, err := sess.store.ReadEvents(commandContext(cmd.Context()), after, limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read events", err)
			}
			return f.Success(EventsOutput{Events: events})
		},
	}
	opts.bind(cmd)
	cmd.Flags().Int64Var(&after, "after", 0, "only events with seq greater than this")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 0, "maximum events (0 = all)")
	return cmd
}
