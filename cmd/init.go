package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/curatordash/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize curatordash configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the backend URL and dashboard options and writes a .curatordash.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
