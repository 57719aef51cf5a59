package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the stored website as a zip archive",
	Long:  `Packs the stored website into a zip with index.html and an images/ folder. Defaults to website-export.zip in the current directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		ctx := context.Background()

		path := export.ArchiveName
		if len(args) == 1 {
			path = args[0]
		}

		database, store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		var buf bytes.Buffer
		if err := export.NewAssembler(nil, logger).Export(ctx, store.Load(ctx), &buf); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Exported %d bytes to %s\n", buf.Len(), path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Load a previously exported zip as the stored website",
	Long:  `Reads an archive written by export and stores it as the current website. Undo history starts fresh.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		ctx := context.Background()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		doc, err := export.Import(data)
		if err != nil {
			return err
		}

		database, store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := store.Save(ctx, doc); err != nil {
			return err
		}
		fmt.Printf("Imported %q with %d images\n", doc.Meta.Title, len(doc.Images))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
