// Command hiscore runs the score signer, the ledger and their tooling.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hiscore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
