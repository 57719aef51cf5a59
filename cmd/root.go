package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitesmith",
	Short: "AI-powered single-page website generator",
	Long: `Sitesmith turns a short description into a complete single-page website:
markup, stylesheet, generated images, favicon and metadata. Edit the result
in the local editor, step through undo history and export it as a zip.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// API keys may live in a .env next to the config; real env wins.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
