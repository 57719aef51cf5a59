package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/export"
	mcpserver "github.com/ziadkadry99/sitesmith/internal/mcp"
	"github.com/ziadkadry99/sitesmith/internal/persist"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing website generation, editing, undo/redo and export tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		pipe, err := createPipelineFromConfig(cfg, logger, progress.Nop{})
		if err != nil {
			return err
		}

		database, store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		session := document.NewSession(cfg.HistoryLimit)
		if doc := store.Load(context.Background()); doc != nil {
			session.Restore(doc)
		}
		autosaver := persist.NewAutosaver(store, cfg.AutosaveDelay())
		defer autosaver.Stop(context.Background())

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "sitesmith MCP server started on stdio (state=%s)\n", cfg.DatabasePath())

		srv := mcpserver.NewServer(mcpserver.Deps{
			Session:         session,
			Generator:       pipe,
			Assembler:       export.NewAssembler(nil, logger),
			Autosaver:       autosaver,
			DefaultLanguage: cfg.DefaultLanguage,
			MaxImageCount:   cfg.MaxImageCount,
			Logger:          logger,
		})
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
