// gotosym is an editor-agnostic goto-symbol backend: a daemon that
// indexes symbol definitions across registered projects and a CLI for
// lookups and editor-event forwarding.
package main

import (
	"os"

	"gotosym/cmd/gotosym/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
