package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "outreach-cli",
	Short:        "A CLI client for the Outreach knowledge service",
	Long:         `A command-line interface for uploading knowledge documents and searching them for outreach email context.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("OUTREACH_SERVER", "http://localhost:8080"), "base URL of the knowledge service")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("OUTREACH_TOKEN"), "JWT bearer token for document management routes")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "HTTP request timeout")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
