// Command oscwc is a client for a remote build-and-source service: it
// tracks a project working copy's packages and drives crash-recoverable
// update/commit cycles against them.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinalkan/oscwc/internal/oscwccli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := oscwccli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, os.Environ(), sigCh)

	os.Exit(exitCode)
}
