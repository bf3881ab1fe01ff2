package cmd

import (
	"github.com/spf13/cobra"

	"github.com/diagramify/diagramify/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize diagramify configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider, render engine and server settings, and writes them to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
