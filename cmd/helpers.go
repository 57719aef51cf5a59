package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/config"
	"github.com/ziadkadry99/sitesmith/internal/db"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/imagegen"
	"github.com/ziadkadry99/sitesmith/internal/llm"
	"github.com/ziadkadry99/sitesmith/internal/logging"
	"github.com/ziadkadry99/sitesmith/internal/persist"
	"github.com/ziadkadry99/sitesmith/internal/pipeline"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `sitesmith init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger; --verbose forces debug level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.LogFormat)
}

// createPipelineFromConfig wires the text and image providers, each behind
// the configured request rate.
func createPipelineFromConfig(cfg *config.Config, logger zerolog.Logger, reporter progress.Reporter) (*pipeline.Pipeline, error) {
	text, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("creating text provider: %w", err)
	}
	images, err := imagegen.NewGenerator(string(cfg.ImageProvider), cfg.ImageModel)
	if err != nil {
		return nil, fmt.Errorf("creating image generator: %w", err)
	}
	if cfg.RequestsPerMinute > 0 {
		text = llm.NewRateLimitedProvider(text, cfg.RequestsPerMinute)
		images = imagegen.NewRateLimitedGenerator(images, cfg.RequestsPerMinute)
	}

	return pipeline.New(text, images, pipeline.Options{
		TextModel:   cfg.Model,
		ImageModel:  cfg.ImageModel,
		ImagePacing: cfg.ImagePacing(),
		Logger:      logger,
		Reporter:    reporter,
	}), nil
}

// openStore opens the local state database and the document store on it.
// The caller closes the returned DB.
func openStore(cfg *config.Config, logger zerolog.Logger) (*db.DB, *persist.Store, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening state database: %w", err)
	}
	return database, persist.NewStore(database, cfg.StorageQuotaBytes, logger), nil
}

// requestFromFlags assembles and validates a generation request.
func requestFromFlags(cfg *config.Config, idea, pageType, lang, sections string, images int) (document.GenerationRequest, error) {
	req := document.GenerationRequest{
		Idea:       idea,
		PageType:   document.PageType(pageType),
		Language:   lang,
		Sections:   strings.Split(sections, ","),
		ImageCount: images,
	}
	req.Normalize(cfg.DefaultLanguage)
	if err := req.Validate(cfg.MaxImageCount); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}
