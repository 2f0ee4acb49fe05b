package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscore/internal/ethsig"
)

// KeyPair is the output of keygen.
type KeyPair struct {
	PrivateKey string `json:"private_key"`
	Address    string `json:"address"`
}

// Text renders the key pair for the terminal.
func (k KeyPair) Text() string {
	return fmt.Sprintf("address:     %s\nprivate key: %s\n", k.Address, k.PrivateKey)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer key pair",
		Long: `Generate a fresh secp256k1 signer key.

Put the private key in SIGNER_PRIVATE_KEY for the signer and the address
in ledger.trusted_signer for any ledger that runs without the key.

Example:
  hiscore keygen
  hiscore keygen --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ethsig.GenerateKey()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to generate key", err)
			}
			return rootOpts.Formatter(cmd).Success(KeyPair{
				PrivateKey: ethsig.KeyHex(key),
				Address:    ethsig.KeyAddress(key).String(),
			})
		},
	}
}
