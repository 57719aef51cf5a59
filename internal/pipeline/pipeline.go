// Package pipeline turns a GenerationRequest into a Document: one
// structured text call, concurrent prompt refinement and favicon
// rendering, then sequential image rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/imagegen"
	"github.com/ziadkadry99/sitesmith/internal/llm"
	"github.com/ziadkadry99/sitesmith/internal/progress"
	"github.com/ziadkadry99/sitesmith/internal/resolver"
)

var errEmptyReply = errors.New("empty reply")

const (
	structureTemperature = 0.7
	refineTemperature    = 0.9
	structureMaxTokens   = 16384
	refineMaxTokens      = 512
)

// Options tune a Pipeline.
type Options struct {
	TextModel  string
	ImageModel string
	// ImagePacing is the pause between consecutive image calls.
	ImagePacing time.Duration
	// RetryDelay is the pause before the single structured-call retry.
	RetryDelay time.Duration
	Logger     zerolog.Logger
	Reporter   progress.Reporter
}

// Pipeline generates documents. It is safe for concurrent use, though the
// session allows only one run at a time.
type Pipeline struct {
	text   llm.Provider
	images imagegen.Generator
	opts   Options
	now    func() time.Time
}

// New creates a pipeline over the given collaborators.
func New(text llm.Provider, images imagegen.Generator, opts Options) *Pipeline {
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop{}
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &Pipeline{text: text, images: images, opts: opts, now: time.Now}
}

// run carries per-call state.
type run struct {
	id       string
	req      document.GenerationRequest
	log      zerolog.Logger
	reporter progress.Reporter
	usage    *usage
	total    int
	step     int
}

func (r *run) report(stage progress.Stage, msg string) {
	r.reporter.Update(progress.Event{RunID: r.id, Stage: stage, Current: r.step, Total: r.total, Message: msg})
}

// Generate runs the whole pipeline. Only a failure of the structured call
// (or cancellation) returns an error; per-asset failures degrade.
func (p *Pipeline) Generate(ctx context.Context, req document.GenerationRequest) (*document.Document, *Stats, error) {
	return p.GenerateWithReporter(ctx, req, nil)
}

// GenerateWithReporter is Generate with an extra reporter for this run only.
func (p *Pipeline) GenerateWithReporter(ctx context.Context, req document.GenerationRequest, extra progress.Reporter) (*document.Document, *Stats, error) {
	started := p.now()
	stats := &Stats{
		RunID:      uuid.NewString(),
		TextModel:  p.opts.TextModel,
		ImageModel: p.opts.ImageModel,
	}
	reporter := p.opts.Reporter
	if extra != nil {
		reporter = progress.Multi{reporter, extra}
	}
	r := &run{
		id:       stats.RunID,
		req:      req,
		log:      p.opts.Logger.With().Str("run", stats.RunID).Logger(),
		reporter: reporter,
		usage:    &usage{stats: stats},
		total:    3,
	}

	reporter.Start(r.total)
	defer reporter.Finish()

	doc, err := p.generate(ctx, r)
	stats.finish(started)
	if err != nil {
		r.report(progress.StageFailed, apperr.UserMessage(err))
		r.log.Error().Err(err).Str("category", string(apperr.Classify(err))).Msg("generation failed")
		return nil, stats, err
	}

	r.step = r.total
	r.report(progress.StageDone, "Done")
	r.log.Info().
		Int("images", len(doc.Images)).
		Int("image_failures", stats.ImageFailures).
		Int("refine_failures", stats.RefineFailures).
		Dur("duration", stats.Duration).
		Float64("cost", stats.EstimatedCost).
		Msg("generation complete")
	return doc, stats, nil
}

func (p *Pipeline) generate(ctx context.Context, r *run) (*document.Document, error) {
	r.report(progress.StageRequestSent, "Designing layout and content")
	draft, err := p.structure(ctx, r)
	if err != nil {
		return nil, &apperr.FatalPipelineError{Stage: "structured generation", Err: err}
	}

	n := len(draft.ImagePrompts)
	if r.req.ImageCount != n {
		r.log.Warn().Int("requested", r.req.ImageCount).Int("declared", n).Msg("image count differs from request")
	}
	r.total = 3 + n
	r.step = 1
	r.report(progress.StageStructureReceived, fmt.Sprintf("Layout ready with %d images", n))

	r.report(progress.StageOptimizing, "Optimizing image prompts")
	refined, favicon := p.refineAll(ctx, r, draft)
	r.step = 2

	images := make([]document.ImageAsset, 0, n)
	for i, spec := range draft.ImagePrompts {
		if err := ctx.Err(); err != nil {
			return nil, &apperr.FatalPipelineError{Stage: "image rendering", Err: err}
		}
		if i > 0 && p.opts.ImagePacing > 0 {
			if err := sleep(ctx, p.opts.ImagePacing); err != nil {
				return nil, &apperr.FatalPipelineError{Stage: "image rendering", Err: err}
			}
		}
		r.report(progress.StageRendering, fmt.Sprintf("Rendering image %d of %d", i+1, n))
		images = append(images, p.renderImage(ctx, r, spec.ID, refined[i]))
		r.step++
	}

	meta := document.Meta{
		Title:       strings.TrimSpace(draft.PageTitle),
		Description: strings.TrimSpace(draft.MetaDescription),
		Keywords:    strings.TrimSpace(draft.MetaKeywords),
	}
	// Stored markup keeps empty image slots; preview and export splice the
	// rendered assets in.
	res, err := resolver.Resolve(draft.HTMLContent, resolver.Inputs{
		Images:      images,
		Meta:        &meta,
		AltText:     true,
		SkipSources: true,
	})
	if err != nil {
		return nil, &apperr.FatalPipelineError{Stage: "assembly", Err: err}
	}
	if len(res.Missing) > 0 {
		r.usage.stats.MissingIDs = res.Missing
		r.log.Warn().Strs("ids", res.Missing).Msg("image placeholders not found in markup")
	}

	return &document.Document{
		HTML:      res.HTML,
		CSS:       res.CSS,
		Images:    images,
		Favicon:   favicon,
		Meta:      meta,
		CreatedAt: p.now().UTC(),
	}, nil
}

// structure performs the structured call with one retry on transient
// failures.
func (p *Pipeline) structure(ctx context.Context, r *run) (*document.SiteDraft, error) {
	draft, err := p.structureOnce(ctx, r)
	if err == nil || !apperr.Retryable(err) {
		return draft, err
	}
	r.log.Warn().Err(err).Dur("delay", p.opts.RetryDelay).Msg("structured generation failed, retrying once")
	if serr := sleep(ctx, p.opts.RetryDelay); serr != nil {
		return nil, err
	}
	return p.structureOnce(ctx, r)
}

func (p *Pipeline) structureOnce(ctx context.Context, r *run) (*document.SiteDraft, error) {
	resp, err := p.text.Complete(ctx, llm.CompletionRequest{
		Model: p.opts.TextModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: structureSystemPrompt},
			{Role: llm.RoleUser, Content: buildStructurePrompt(r.req)},
		},
		MaxTokens:      structureMaxTokens,
		Temperature:    structureTemperature,
		JSONMode:       true,
		ResponseSchema: siteDraftSchema(),
	})
	r.usage.text(resp)
	if err != nil {
		return nil, err
	}
	return parseDraft(resp.Content)
}

// refineAll expands every short prompt and renders the favicon, all
// concurrently. Failures fall back and are only logged.
func (p *Pipeline) refineAll(ctx context.Context, r *run, draft *document.SiteDraft) ([]string, *document.FaviconAsset) {
	refined := make([]string, len(draft.ImagePrompts))
	var favicon *document.FaviconAsset

	var g errgroup.Group
	for i, spec := range draft.ImagePrompts {
		g.Go(func() error {
			refined[i] = p.refine(ctx, r, spec)
			return nil
		})
	}
	if strings.TrimSpace(draft.FaviconPrompt) != "" {
		g.Go(func() error {
			favicon = p.renderFavicon(ctx, r, draft.FaviconPrompt)
			return nil
		})
	}
	_ = g.Wait()
	return refined, favicon
}

func (p *Pipeline) refine(ctx context.Context, r *run, spec document.ImagePromptSpec) string {
	resp, err := p.text.Complete(ctx, llm.CompletionRequest{
		Model: p.opts.TextModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: refineSystemPrompt},
			{Role: llm.RoleUser, Content: buildRefinePrompt(r.req, spec)},
		},
		MaxTokens:       refineMaxTokens,
		Temperature:     refineTemperature,
		DisableThinking: true,
	})
	r.usage.text(resp)

	var out string
	if err == nil {
		out = plainText(resp.Content)
		if out == "" {
			err = errEmptyReply
		}
	}
	if err != nil {
		r.usage.refineFailed()
		r.log.Warn().Err(&apperr.DegradedAssetError{Asset: spec.ID, Err: err}).Msg("prompt refinement failed, using short prompt")
		return spec.Prompt
	}
	return out
}

func (p *Pipeline) renderFavicon(ctx context.Context, r *run, prompt string) *document.FaviconAsset {
	final := faviconStylePrefix + strings.TrimSpace(prompt)
	img, err := p.images.Generate(ctx, imagegen.ImageRequest{
		Model:       p.opts.ImageModel,
		Prompt:      final,
		Count:       1,
		OutputMIME:  "image/jpeg",
		AspectRatio: imagegen.AspectSquare,
	})
	r.usage.favicon(err != nil)
	if err != nil {
		r.log.Warn().Err(&apperr.DegradedAssetError{Asset: "favicon", Err: err}).Msg("favicon rendering failed")
		return nil
	}
	return &document.FaviconAsset{RenderedURL: img.DataURL(), FinalPrompt: final}
}

func (p *Pipeline) renderImage(ctx context.Context, r *run, id, prompt string) document.ImageAsset {
	asset := document.ImageAsset{PlaceholderID: id, FinalPrompt: prompt}
	img, err := p.images.Generate(ctx, imagegen.ImageRequest{
		Model:       p.opts.ImageModel,
		Prompt:      prompt,
		Count:       1,
		OutputMIME:  "image/jpeg",
		AspectRatio: imagegen.AspectWide,
	})
	r.usage.image(err != nil)
	if err != nil {
		r.log.Warn().Err(&apperr.DegradedAssetError{Asset: id, Err: err}).Msg("image rendering failed, using placeholder")
		asset.RenderedURL = document.FailedImageURL
		asset.Failed = true
		return asset
	}
	asset.RenderedURL = img.DataURL()
	return asset
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
