package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sitesmith configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose text and image providers and a quality tier, and writes a .sitesmith.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
