package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/diagramify/diagramify/internal/mcp"
)

var mcpNoRender bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing diagram generation, section splitting, outlines and rendering to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := slog.Default()

		engine := newEngine(cfg)
		if mcpNoRender {
			engine = nil
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "diagramify MCP server started on stdio (provider=%s, model=%s)\n", cfg.Provider, cfg.Model)

		srv := mcpserver.NewServer(newGenerator(cfg, logger), engine, logger)
		return srv.Serve()
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpNoRender, "no-render", false, "do not expose the render_diagram tool")
	rootCmd.AddCommand(mcpCmd)
}
