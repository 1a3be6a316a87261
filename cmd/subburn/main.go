// Command subburn is the operator CLI for the daemon: submit jobs, poll
// status, fetch results, and manage configuration.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "subburn: %v\n", err)
		os.Exit(1)
	}
}
