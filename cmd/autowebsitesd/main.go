// Package main is the autowebsites daemon. It discovers local
// businesses on a nightly schedule, builds preview websites for the
// qualified ones, and sends capped outreach email, exposing the whole
// cycle over an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autowebsitesd",
	Short: "Nightly lead discovery and outreach orchestrator",
	Long: "Autowebsitesd runs nightly outreach cycles: it discovers local businesses,\n" +
		"qualifies the ones with weak or missing websites, deploys preview sites for\n" +
		"them, and sends a capped number of outreach emails. Configuration comes from\n" +
		"the environment (or a .env file); persistence, scheduling, and the HTTP API\n" +
		"are all wired from it.",
}

func main() {
	// Load .env if present; the environment always wins.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
