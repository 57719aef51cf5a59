package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/export"
	"github.com/ziadkadry99/sitesmith/internal/persist"
	"github.com/ziadkadry99/sitesmith/internal/progress"
	"github.com/ziadkadry99/sitesmith/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local website editor",
	Long:  `Starts the browser editor: generate, preview, edit markup and styles, undo and redo, and export the current website. The last website is restored from local storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		// Browser clients follow progress over the websocket hub.
		hub := progress.NewHub(0)
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
			logger.Info().Str("title", doc.Meta.Title).Msg("restored saved website")
		}

		srv := server.New(server.Config{
			Port:            cfg.Port,
			AllowAll:        serveAllowAll,
			DefaultLanguage: cfg.DefaultLanguage,
			MaxImageCount:   cfg.MaxImageCount,
		}, server.Deps{
			Session:   session,
			Generator: pipe,
			Assembler: export.NewAssembler(nil, logger),
			Autosaver: persist.NewAutosaver(store, cfg.AutosaveDelay()),
			Hub:       hub,
			Logger:    logger,
		})

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down editor...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown")
			}
		}()

		fmt.Fprintf(os.Stderr, "sitesmith %s editor on http://localhost:%d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  State: %s\n", cfg.DatabasePath())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		<-done
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "cors-allow-all", false, "allow cross-origin requests from any origin")
	rootCmd.AddCommand(serveCmd)
}
