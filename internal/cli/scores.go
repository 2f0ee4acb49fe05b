package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscore/internal/model"
)

// LedgerOptions holds flags shared by commands that open the database.
type LedgerOptions struct {
	*RootOptions
	Database string
}

func (o *LedgerOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (overrides ledger.db_path)")
}

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	LedgerOptions
	Signature string
	Timestamp int64
	Nonce     string
	Sign      bool
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{LedgerOptions: LedgerOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "submit <address> <score>",
		Short: "Submit a score to the ledger",
		Long: `Submit a score directly to the ledger database.

Pass the token from "hiscore authorize" with --signature/--timestamp/--nonce,
or --sign to authorize with the configured key first. Without a token the
submission is unauthenticated and only ledger.legacy_submit admits it.

Exit codes:
  0 - Committed
  1 - Rejected (see error code)
  2 - Command error

Example:
  hiscore submit 0x1111111111111111111111111111111111111111 120 --sign
  hiscore submit 0x1111... 120 --signature 0x... --timestamp 1700000000 --nonce 0x...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Signature, "signature", "", "authorization signature (0x + 130 hex)")
	cmd.Flags().Int64Var(&opts.Timestamp, "timestamp", 0, "authorization timestamp")
	cmd.Flags().StringVar(&opts.Nonce, "nonce", "", "authorization nonce (0x + 64 hex)")
	cmd.Flags().BoolVar(&opts.Sign, "sign", false, "authorize with the configured signer key before submitting")
	cmd.MarkFlagsRequiredTogether("signature", "timestamp", "nonce")
	cmd.MarkFlagsMutuallyExclusive("sign", "signature")

	return cmd
}

// ReceiptOutput wraps a receipt with its text form.
type ReceiptOutput struct {
	model.Receipt
}

// Text renders the receipt.
func (r ReceiptOutput) Text() string {
	var b strings.Builder
	if r.FirstAppearance {
		fmt.Fprintf(&b, "committed %d for %s (first appearance)\n", r.Score, r.Player)
	} else {
		fmt.Fprintf(&b, "committed %d for %s (previous best %d)\n", r.Score, r.Player, r.PreviousBest)
	}
	fmt.Fprintf(&b, "tx %s seq %d\n", r.TxID, r.Seq)
	return b.String()
}

func runSubmit(opts *SubmitOptions, args []string, cmd *cobra.Command) error {
	f := opts.Formatter(cmd)
	ctx := commandContext(cmd.Context())

	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}

	player, err := model.ParseAddress(args[0])
	if err != nil {
		return f.Reject(err)
	}
	score, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return f.Reject(model.NewValidationError(model.CodeInvalidScore, fmt.Sprintf("invalid score %q", args[1])))
	}

	sub := model.Submission{Player: player, Score: score}
	switch {
	case opts.Sign:
		auth, err := cfg.NewSigner(opts.Logger()).Authorize(ctx, args[0], score)
		if err != nil {
			return f.Reject(err)
		}
		sub.Auth = &auth
	case opts.Signature != "":
		nonce, err := model.ParseHash(opts.Nonce)
		if err != nil {
			return f.Reject(err)
		}
		sub.Auth = &model.Authorization{
			Player:    player,
			Score:     score,
			Signature: opts.Signature,
			Timestamp: opts.Timestamp,
			Nonce:     nonce,
		}
	}

	sess, err := openSession(ctx, cfg, dbPath(opts.Database, cfg), opts.Logger())
	if err != nil {
		return err
	}
	defer sess.Close()

	receipt, err := sess.ledger.Submit(ctx, sub)
	if err != nil {
		return f.Reject(err)
	}
	return f.Success(ReceiptOutput{receipt})
}

// PlayerOutput is the result of the score command.
type PlayerOutput struct {
	Address   model.Address `json:"address"`
	Score     uint64        `json:"score"`
	HasPlayed bool          `json:"hasPlayed"`
}

// Text renders the player line.
func (p PlayerOutput) Text() string {
	if !p.HasPlayed {
		return fmt.Sprintf("%s has not played\n", p.Address)
	}
	return fmt.Sprintf("%s %d\n", p.Address, p.Score)
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "score <address>",
		Short:         "Show a player's best score",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.Formatter(cmd)
			ctx := commandContext(cmd.Context())

			addr, err := model.ParseAddress(args[0])
			if err != nil {
				return f.Reject(err)
			}
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			rec, err := sess.ranking.Player(ctx, addr)
			if err != nil {
				return f.Reject(err)
			}
			return f.Success(PlayerOutput{Address: addr, Score: rec.BestScore, HasPlayed: rec.HasPlayed})
		},
	}
	opts.bind(cmd)
	return cmd
}

// RankingOutput is the result of top and page.
type RankingOutput struct {
	Offset  uint64          `json:"offset"`
	Players []model.Address `json:"players"`
	Scores  []uint64        `json:"scores"`
}

// Text renders one numbered row per player.
func (r RankingOutput) Text() string {
	if len(r.Players) == 0 {
		return "no players\n"
	}
	var b strings.Builder
	for i := range r.Players {
		fmt.Fprintf(&b, "%4d  %s  %d\n", r.Offset+uint64(i)+1, r.Players[i], r.Scores[i])
	}
	return b.String()
}

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}
	var limit uint64

	cmd := &cobra.Command{
		Use:           "top",
		Short:         "Show the highest best scores",
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

			addrs, scores, err := sess.ranking.TopScores(commandContext(cmd.Context()), limit)
			if err != nil {
				return f.Reject(err)
			}
			return f.Success(RankingOutput{Players: addrs, Scores: scores})
		},
	}
	opts.bind(cmd)
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 10, "number of players")
	return cmd
}

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}
	var offset, limit uint64

	cmd := &cobra.Command{
		Use:           "page",
		Short:         "List players in registration order",
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

			addrs, scores, err := sess.ranking.PlayersPage(commandContext(cmd.Context()), offset, limit)
			if err != nil {
				return f.Reject(err)
			}
			return f.Success(RankingOutput{Offset: offset, Players: addrs, Scores: scores})
		},
	}
	opts.bind(cmd)
	cmd.Flags().Uint64Var(&offset, "offset", 0, "registry offset")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 10, "page size")
	return cmd
}

// open loads config and opens a session on the selected database.
func (o *LedgerOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, err
	}
	return openSession(commandContext(cmd.Context()), cfg, dbPath(o.Database, cfg), o.Logger())
}
