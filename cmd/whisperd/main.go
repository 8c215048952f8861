// Command whisperd is a local speech-to-text gateway. `whisperd serve`
// runs the long-lived stdio session; the remaining subcommands are
// one-shot maintenance operations printing single-line JSON results.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// errResult marks failures whose result was already printed.
		if !errors.Is(err, errResult) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
