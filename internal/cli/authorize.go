package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscore/internal/model"
)

// AuthorizationOutput is the signer wire format plus the bound claim.
type AuthorizationOutput struct {
	Player    model.Address `json:"player"`
	Score     uint64        `json:"score"`
	Signature string        `json:"signature"`
	Timestamp int64         `json:"timestamp"`
	Nonce     model.Hash    `json:"nonce"`
	ExpiresAt int64         `json:"expiresAt"`
}

// Text renders the token as submit flags.
func (a AuthorizationOutput) Text() string {
	return fmt.Sprintf("--signature %s --timestamp %d --nonce %s\n", a.Signature, a.Timestamp, a.Nonce.Hex())
}

// NewAuthorizeCommand creates the authorize command.
func NewAuthorizeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authorize <address> <score>",
		Short: "Sign a score authorization with the configured key",
		Long: `Issue an authorization exactly as POST /authorize would.

The key comes from signer.private_key or SIGNER_PRIVATE_KEY.

Exit codes:
  0 - Authorization issued
  1 - Rejected (invalid address, invalid score, signer not configured)
  2 - Command error

Example:
  SIGNER_PRIVATE_KEY=0x... hiscore authorize 0x1111111111111111111111111111111111111111 120`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.Formatter(cmd)
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return err
			}

			score, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return f.Reject(model.NewValidationError(model.CodeInvalidScore, fmt.Sprintf("invalid score %q", args[1])))
			}

			s := cfg.NewSigner(rootOpts.Logger())
			auth, err := s.Authorize(commandContext(cmd.Context()), args[0], score)
			if err != nil {
				return f.Reject(err)
			}
			return f.Success(AuthorizationOutput{
				Player:    auth.Player,
				Score:     auth.Score,
				Signature: auth.Signature,
				Timestamp: auth.Timestamp,
				Nonce:     auth.Nonce,
				ExpiresAt: auth.ExpiresAt,
			})
		},
	}
	return cmd
}
