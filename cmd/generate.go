package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/export"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

var generateCmd = &cobra.Command{
	Use:   "generate [idea]",
	Short: "Generate a website from a description",
	Long: `Runs the full generation pipeline once: structured page draft, image prompt
refinement, favicon and image rendering. The result replaces the stored
website that the editor opens, and can optionally be written as a zip.`,
	Args: cobra.ArbitraryArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("type", "landing", "page type (landing, portfolio, business, blog, event, product, restaurant, personal)")
	generateCmd.Flags().String("lang", "", "content language tag (defaults to default_language)")
	generateCmd.Flags().String("sections", "", "comma-separated section names in order")
	generateCmd.Flags().Int("images", 4, "number of images to generate")
	generateCmd.Flags().String("out", "", "also write the export zip to this path")
	generateCmd.Flags().Bool("no-save", false, "do not replace the stored website")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	pageType, _ := cmd.Flags().GetString("type")
	lang, _ := cmd.Flags().GetString("lang")
	sections, _ := cmd.Flags().GetString("sections")
	images, _ := cmd.Flags().GetInt("images")
	outPath, _ := cmd.Flags().GetString("out")
	noSave, _ := cmd.Flags().GetBool("no-save")

	req, err := requestFromFlags(cfg, strings.Join(args, " "), pageType, lang, sections, images)
	if err != nil {
		return err
	}

	pipe, err := createPipelineFromConfig(cfg, logger, progress.NewReporter())
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Generating a %s page in %s with %d images...\n", req.PageType, req.LanguageName(), req.ImageCount)
	}

	doc, stats, err := pipe.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s", apperr.UserMessage(err))
	}

	if !noSave {
		database, store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := store.Save(ctx, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	if outPath != "" {
		var buf bytes.Buffer
		if err := export.NewAssembler(nil, logger).Export(ctx, doc, &buf); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
	}

	fmt.Println()
	fmt.Println("Generation complete!")
	fmt.Printf("  Title:           %s\n", doc.Meta.Title)
	fmt.Printf("  Images:          %d (%d failed)\n", len(doc.Images), doc.FailedCount())
	fmt.Printf("  Favicon:         %t\n", doc.Favicon != nil)
	fmt.Printf("  Tokens used:     %d input, %d output\n", stats.InputTokens, stats.OutputTokens)
	if stats.EstimatedCost > 0 {
		fmt.Printf("  Estimated cost:  $%.4f\n", stats.EstimatedCost)
	}
	fmt.Printf("  Duration:        %s\n", time.Since(start).Round(time.Millisecond))
	if outPath != "" {
		fmt.Printf("  Archive:         %s\n", outPath)
	}
	if !noSave {
		fmt.Printf("  Saved to:        %s (open with `sitesmith serve`)\n", cfg.DatabasePath())
	}
	if len(stats.MissingIDs) > 0 {
		fmt.Fprintf(os.Stderr, "\nWarning: no element found for image ids: %s\n", strings.Join(stats.MissingIDs, ", "))
	}
	return nil
}
