package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/config"
	mcpserver "github.com/alfredjeanlab/gridq/internal/mcp"
	"github.com/alfredjeanlab/gridq/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve datasets to AI agents over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
list_datasets and query_dataset tools. Logs go to stderr.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cat, err := openCatalog(ctx, datasetsFile, nil, catalog.WithLocale(cfg.Locale))
		if err != nil {
			return err
		}
		if err := cat.LoadAll(ctx); err != nil {
			logger.Warn("some datasets failed to load", "err", err)
		}
		return mcpserver.New(server.NewQueryServer(cat, logger), version, logger).ServeStdio()
	},
}
