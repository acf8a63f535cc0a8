package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wsctl",
		Short: "WebSocket session manager CLI",
		Long: `wsctl drives a managed WebSocket session from the terminal.

It wraps the wsession client library: a reconciling connection state
machine, buffered message queues, and an application-level ping-pong
keepalive with round-trip measurement.

  • connect: interactive session, stdin lines become text messages
  • ping:    measure round-trip time over a managed session
  • echo:    run a local echo server for testing`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		connectCmd(),
		pingCmd(),
		echoCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
