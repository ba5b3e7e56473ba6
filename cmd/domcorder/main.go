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

const banner = `
  ╔╦╗╔═╗╔╦╗╔═╗╔═╗╦═╗╔╦╗╔═╗╦═╗
   ║║║ ║║║║║  ║ ║╠╦╝ ║║║╣ ╠╦╝
  ═╩╝╚═╝╩ ╩╚═╝╚═╝╩╚══╩╝╚═╝╩╚═
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "domcorder",
		Short: "Record and replay DOM mutation streams",
		Long: `domcorder captures a live page's DOM as a binary frame stream and
replays it headlessly against an in-memory document, for debugging and
archival of web sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		recordCmd(),
		playCmd(),
		inspectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(banner)
}

func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
