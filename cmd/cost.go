package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitesmith/internal/config"
	"github.com/ziadkadry99/sitesmith/internal/pipeline"
)

var costCmd = &cobra.Command{
	Use:   "cost [idea]",
	Short: "Estimate API costs for generating a website",
	Long:  `Performs a dry run that estimates model calls, tokens and the expected API cost of a generation without making any calls.`,
	RunE:  runCost,
}

func init() {
	costCmd.Flags().String("sections", "", "comma-separated section names in order")
	costCmd.Flags().Int("images", 4, "number of images to generate")
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sections, _ := cmd.Flags().GetString("sections")
	images, _ := cmd.Flags().GetInt("images")
	idea := strings.Join(args, " ")
	if idea == "" {
		idea = "a website"
	}

	req, err := requestFromFlags(cfg, idea, "", "", sections, images)
	if err != nil {
		return err
	}

	estimate := pipeline.EstimateRequest(req, cfg.Model, cfg.ImageModel)

	fmt.Println("Cost Estimate")
	fmt.Println("=============")
	fmt.Printf("  Text calls:          %d\n", estimate.TextCalls)
	fmt.Printf("  Image calls:         %d (including favicon)\n", estimate.ImageCalls)
	fmt.Printf("  Estimated tokens:    %d input, %d output\n", estimate.InputTokens, estimate.OutputTokens)
	fmt.Println()

	fmt.Println("  Cost Breakdown:")
	ops := make([]string, 0, len(estimate.Breakdown))
	for op := range estimate.Breakdown {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Printf("    %-20s $%.4f\n", op, estimate.Breakdown[op])
	}
	fmt.Printf("    %-20s --------\n", "")
	fmt.Printf("    %-20s $%.4f\n", "Total", estimate.Total)
	fmt.Println()

	// Show tier comparison.
	fmt.Println("  Tier Comparison:")
	fmt.Println("  ────────────────────────────────────────")
	for _, tier := range []config.QualityTier{config.QualityLite, config.QualityNormal, config.QualityMax} {
		preset := config.GetPreset(cfg.Provider, tier)
		imageModel := preset.ImageModel
		if imageModel == "" {
			imageModel = config.GetPreset(cfg.ImageProvider, tier).ImageModel
		}
		tierEstimate := pipeline.EstimateRequest(req, preset.Model, imageModel)

		marker := " "
		if tier == cfg.Quality {
			marker = "*"
		}
		fmt.Printf("  %s %-8s  ~$%.4f  (model: %s, images: %s)\n", marker, tier, tierEstimate.Total, preset.Model, imageModel)
	}
	fmt.Println()
	fmt.Println("  * = current configuration")
	fmt.Println()
	fmt.Printf("  Provider: %s / %s\n", cfg.Provider, cfg.ImageProvider)
	fmt.Printf("  Model:    %s / %s\n", cfg.Model, cfg.ImageModel)
	fmt.Printf("  Quality:  %s\n", cfg.Quality)

	return nil
}
