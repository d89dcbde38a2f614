package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "aethena-cli",
	Short: "A CLI client for the Aethena document Q&A service",
	Long: `A command-line interface for uploading documents, ingesting them into
your workspace index, asking questions and managing the question history.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("AETHENA_SERVER", "http://localhost:8080"), "base URL of the Aethena API")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("AETHENA_TOKEN"), "bearer token (defaults to $AETHENA_TOKEN)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
