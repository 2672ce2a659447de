// Command leasehold verifies, inspects and exercises a rental agreement
// journal.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/leasehold/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
