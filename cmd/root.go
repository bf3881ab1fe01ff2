package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/diagramify/diagramify/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "diagramify",
	Short: "Turn markdown documents into Mermaid diagrams with an LLM",
	Long: `Diagramify splits markdown documents into sections and asks a
language model to draw a Mermaid diagram for each one. Use the web editor
to refine diagrams interactively, the generate command to diagram whole
doc trees, or the MCP server to let AI agents draw diagrams.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return config.LoadDotEnv(".env")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".diagramify.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
