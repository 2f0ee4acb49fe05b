package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscore/internal/model"
)

// NewSkinCommand creates the skin command with has and grant subcommands.
func NewSkinCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skin",
		Short: "Query and grant skin entitlements",
	}
	cmd.AddCommand(newSkinHasCommand(rootOpts))
	cmd.AddCommand(newSkinGrantCommand(rootOpts))
	return cmd
}

// SkinOwnership is the result of skin has.
type SkinOwnership struct {
	Address model.Address `json:"address"`
	Skin    uint64        `json:"skin"`
	Owned   bool          `json:"owned"`
}

// Text renders ownership.
func (s SkinOwnership) Text() string {
	if s.Owned {
		return fmt.Sprintf("%s owns skin %d\n", s.Address, s.Skin)
	}
	return fmt.Sprintf("%s does not own skin %d\n", s.Address, s.Skin)
}

func newSkinHasCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "has <address> <skin-id>",
		Short:         "Check whether a player owns a skin",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.Formatter(cmd)
			addr, skinID, err := parseSkinArgs(args)
			if err != nil {
				return f.Reject(err)
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			owned, err := sess.ledger.HasSkin(commandContext(cmd.Context()), addr, skinID)
			if err != nil {
				return f.Reject(err)
			}
			return f.Success(SkinOwnership{Address: addr, Skin: skinID, Owned: owned})
		},
	}
	opts.bind(cmd)
	return cmd
}

// SkinReceiptOutput wraps a grant receipt with its text form.
type SkinReceiptOutput struct {
	model.SkinReceipt
}

// Text renders the grant outcome.
func (r SkinReceiptOutput) Text() string {
	if !r.Granted {
		return fmt.Sprintf("%s already owns skin %d\n", r.Player, r.SkinID)
	}
	return fmt.Sprintf("granted skin %d to %s (charged %d, tx %s)\n", r.SkinID, r.Player, r.Charged, r.TxID)
}

func newSkinGrantCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}
	var payment uint64

	cmd := &cobra.Command{
		Use:   "grant <address> <skin-id>",
		Short: "Unlock a catalog skin for a player",
		Long: `Unlock a skin. In purchase mode --payment must cover the skin price and
is charged in full. Granting an owned skin changes nothing.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.Formatter(cmd)
			addr, skinID, err := parseSkinArgs(args)
			if err != nil {
				return f.Reject(err)
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			receipt, err := sess.ledger.GrantSkin(commandContext(cmd.Context()), model.SkinGrant{
				Player:  addr,
				SkinID:  skinID,
				Payment: payment,
			})
			if err != nil {
				return f.Reject(err)
			}
			return f.Success(SkinReceiptOutput{receipt})
		},
	}
	opts.bind(cmd)
	cmd.Flags().Uint64Var(&payment, "payment", 0, "amount paid (purchase mode)")
	return cmd
}

func parseSkinArgs(args []string) (model.Address, uint64, error) {
	addr, err := model.ParseAddress(args[0])
	if err != nil {
		return addr, 0, err
	}
	skinID, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return addr, 0, model.NewValidationError(model.CodeUnknownSkin, fmt.Sprintf("invalid skin id %q", args[1]))
	}
	return addr, skinID, nil
}
