package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/imagegen"
	"github.com/ziadkadry99/sitesmith/internal/llm"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

// mockProvider answers structured calls with structure and refinement calls
// via refine.
type mockProvider struct {
	mu            sync.Mutex
	structure     []func() (string, error)
	structureHits int
	refine        func(prompt string) (string, error)
	requests      []llm.CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var fn func() (string, error)
	if req.JSONMode {
		fn = m.structure[min(m.structureHits, len(m.structure)-1)]
		m.structureHits++
	}
	m.mu.Unlock()

	if req.JSONMode {
		content, err := fn()
		if err != nil {
			return nil, err
		}
		return &llm.CompletionResponse{Content: content, InputTokens: 100, OutputTokens: 200}, nil
	}
	user := req.Messages[len(req.Messages)-1].Content
	content, err := m.refine(user)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content, InputTokens: 10, OutputTokens: 20}, nil
}

type mockGenerator struct {
	size     int // payload size; 0 echoes the prompt
	mu       sync.Mutex
	fail     map[string]bool
	requests []imagegen.ImageRequest
}

func (g *mockGenerator) Name() string { return "mock" }

func (g *mockGenerator) Generate(ctx context.Context, req imagegen.ImageRequest) (*imagegen.Image, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	for key := range g.fail {
		if strings.Contains(req.Prompt, key) {
			return nil, errors.New("image blocked by safety filter")
		}
	}
	if g.size > 0 {
		return &imagegen.Image{MIMEType: "image/png", Data: make([]byte, g.size)}, nil
	}
	return &imagegen.Image{MIMEType: "image/png", Data: []byte(req.Prompt)}, nil
}

func draftJSON(t *testing.T, d document.SiteDraft) string {
	t.Helper()
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	return "```json\n" + string(b) + "\n```"
}

func sampleDraft() document.SiteDraft {
	return document.SiteDraft{
		PageTitle:       "Sunrise Bakery",
		MetaDescription: "Fresh bread",
		MetaKeywords:    "bread",
		FaviconPrompt:   "a loaf",
		HTMLContent: `<!DOCTYPE html><html><head><style>body{margin:0}</style></head>` +
			`<body><img id="hero-image"><img id="gallery-1"></body></html>`,
		ImagePrompts: []document.ImagePromptSpec{
			{ID: "hero-image", Prompt: "bread on a table"},
			{ID: "gallery-1", Prompt: "croissants"},
		},
	}
}

func newTestPipeline(p llm.Provider, g imagegen.Generator, rep progress.Reporter) *Pipeline {
	return New(p, g, Options{
		TextModel:  "gemini-2.5-flash",
		ImageModel: "imagen-4.0-generate-001",
		RetryDelay: 1,
		Logger:     zerolog.Nop(),
		Reporter:   rep,
	})
}

func testRequest() document.GenerationRequest {
	req := document.GenerationRequest{Idea: "a bakery", ImageCount: 2}
	req.Normalize("en")
	return req
}

func TestGenerateHappyPath(t *testing.T) {
	provider := &mockProvider{
		structure: []func() (string, error){func() (string, error) { return draftJSON(t, sampleDraft()), nil }},
		refine: func(prompt string) (string, error) {
			if strings.Contains(prompt, "croissants") {
				return "**Golden** croissants\n\n- soft morning light", nil
			}
			return "Rustic sourdough loaf on oak", nil
		},
	}
	gen := &mockGenerator{}
	var stages []progress.Stage
	rep := progress.Func(func(ev progress.Event) { stages = append(stages, ev.Stage) })

	doc, stats, err := newTestPipeline(provider, gen, rep).Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(doc.Images) != 2 || doc.Images[0].PlaceholderID != "hero-image" || doc.Images[1].PlaceholderID != "gallery-1" {
		t.Fatalf("images = %+v", doc.Images)
	}
	if doc.Images[1].FinalPrompt != "Golden croissants soft morning light" {
		t.Errorf("refined prompt = %q", doc.Images[1].FinalPrompt)
	}
	if doc.CSS != "body{margin:0}" {
		t.Errorf("css = %q", doc.CSS)
	}
	if !strings.Contains(doc.HTML, `<title>Sunrise Bakery</title>`) {
		t.Errorf("html missing metadata: %s", doc.HTML)
	}
	if strings.Contains(doc.HTML, "data:") || strings.Contains(doc.HTML, `rel="icon"`) {
		t.Errorf("stored markup must not carry image payloads: %s", doc.HTML)
	}
	if !strings.Contains(doc.HTML, `alt="Rustic sourdough loaf on oak"`) {
		t.Errorf("hero alt not applied: %s", doc.HTML)
	}
	if doc.Favicon == nil || !strings.HasPrefix(doc.Favicon.FinalPrompt, "A minimalist vector icon") {
		t.Errorf("favicon = %+v", doc.Favicon)
	}

	// favicon square, page images wide, page images in source order
	var wide []string
	for _, r := range gen.requests {
		if r.AspectRatio == imagegen.AspectSquare {
			continue
		}
		if r.AspectRatio != imagegen.AspectWide || r.Count != 1 {
			t.Errorf("unexpected image request %+v", r)
		}
		wide = append(wide, r.Prompt)
	}
	if len(wide) != 2 || wide[0] != "Rustic sourdough loaf on oak" {
		t.Errorf("wide prompts = %v", wide)
	}

	if stats.TextCalls != 3 || stats.ImageCalls != 3 || stats.InputTokens != 120 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.EstimatedCost <= 0 {
		t.Error("expected a positive cost estimate")
	}

	if stages[0] != progress.StageRequestSent || stages[len(stages)-1] != progress.StageDone {
		t.Errorf("stages = %v", stages)
	}

	for _, req := range provider.requests {
		if req.JSONMode {
			if req.ResponseSchema == nil || req.Temperature != structureTemperature {
				t.Errorf("structured request = %+v", req)
			}
		} else if !req.DisableThinking || req.Temperature != refineTemperature {
			t.Errorf("refine request = %+v", req)
		}
	}
}

func TestGenerateDegradesPerAsset(t *testing.T) {
	provider := &mockProvider{
		structure: []func() (string, error){func() (string, error) { return draftJSON(t, sampleDraft()), nil }},
		refine: func(prompt string) (string, error) {
			if strings.Contains(prompt, "croissants") {
				return "", errors.New("status 500")
			}
			return "refined bread", nil
		},
	}
	gen := &mockGenerator{fail: map[string]bool{"refined bread": true, "minimalist": true}}

	doc, stats, err := newTestPipeline(provider, gen, nil).Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(doc.Images) != 2 {
		t.Fatalf("expected both slots kept, got %d", len(doc.Images))
	}
	hero := doc.Images[0]
	if !hero.Failed || hero.RenderedURL != document.FailedImageURL || hero.PlaceholderID != "hero-image" {
		t.Errorf("hero = %+v", hero)
	}
	if doc.Images[1].FinalPrompt != "croissants" {
		t.Errorf("refinement fallback = %q", doc.Images[1].FinalPrompt)
	}
	if doc.Favicon != nil {
		t.Error("favicon should be nil after failure")
	}
	if stats.RefineFailures != 1 || stats.ImageFailures != 1 || !stats.FaviconFailed {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGenerateRetriesOnceThenSucceeds(t *testing.T) {
	provider := &mockProvider{
		structure: []func() (string, error){
			func() (string, error) { return "", errors.New("gemini API error 503 (UNAVAILABLE): overloaded") },
			func() (string, error) { return draftJSON(t, sampleDraft()), nil },
		},
		refine: func(string) (string, error) { return "ok", nil },
	}
	if _, _, err := newTestPipeline(provider, &mockGenerator{}, nil).Generate(context.Background(), testRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if provider.structureHits != 2 {
		t.Errorf("structured calls = %d, want 2", provider.structureHits)
	}
}

func TestGenerateFatalAfterRetry(t *testing.T) {
	provider := &mockProvider{
		structure: []func() (string, error){
			func() (string, error) { return "", errors.New("status 503") },
		},
	}
	var last progress.Event
	rep := progress.Func(func(ev progress.Event) { last = ev })
	doc, _, err := newTestPipeline(provider, &mockGenerator{}, rep).Generate(context.Background(), testRequest())
	if doc != nil {
		t.Error("no document on fatal failure")
	}
	var fatal *apperr.FatalPipelineError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalPipelineError, got %v", err)
	}
	if provider.structureHits != 2 {
		t.Errorf("structured calls = %d, want 2", provider.structureHits)
	}
	if last.Stage != progress.StageFailed {
		t.Errorf("last stage = %q", last.Stage)
	}
}

func TestGenerateMalformedReplyNotRetried(t *testing.T) {
	provider := &mockProvider{
		structure: []func() (string, error){func() (string, error) { return "Sorry, I can't do that.", nil }},
	}
	_, _, err := newTestPipeline(provider, &mockGenerator{}, nil).Generate(context.Background(), testRequest())
	var parseErr *apperr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if apperr.Classify(err) != apperr.CategoryMalformedResponse {
		t.Errorf("category = %q", apperr.Classify(err))
	}
	if provider.structureHits != 1 {
		t.Errorf("structured calls = %d, want 1", provider.structureHits)
	}
}

func TestGenerateKeepsPayloadsOutOfMarkup(t *testing.T) {
	provider := &mockProvider{
		structure: []func() (string, error){func() (string, error) { return draftJSON(t, sampleDraft()), nil }},
		refine:    func(string) (string, error) { return "a photo", nil },
	}
	gen := &mockGenerator{size: 1 << 20}

	doc, _, err := newTestPipeline(provider, gen, nil).Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(doc.HTML, "data:") {
		t.Error("markup carries a data URL")
	}
	if len(doc.HTML) > 4096 {
		t.Errorf("markup is %d bytes, want placeholders only", len(doc.HTML))
	}
	if len(doc.Images) != 2 || len(doc.Images[0].RenderedURL) < 1<<20 {
		t.Error("rendered payloads belong in the image assets")
	}

	// every history snapshot copies only markup and css
	session := document.NewSession(0)
	session.Publish(doc)
	for i := 0; i < 3; i++ {
		if _, err := session.Edit(doc.HTML+strings.Repeat(" ", i+1), doc.CSS); err != nil {
			t.Fatalf("Edit: %v", err)
		}
	}
	if got := session.Snapshot(); strings.Contains(got.HTML, "data:") {
		t.Error("edited markup carries a data URL")
	}
}

func TestGenerateZeroImages(t *testing.T) {
	d := sampleDraft()
	d.ImagePrompts = nil
	d.FaviconPrompt = ""
	provider := &mockProvider{
		structure: []func() (string, error){func() (string, error) { return draftJSON(t, d), nil }},
	}
	gen := &mockGenerator{}
	req := testRequest()
	req.ImageCount = 0
	doc, _, err := newTestPipeline(provider, gen, nil).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(doc.Images) != 0 || len(gen.requests) != 0 || doc.Favicon != nil {
		t.Errorf("expected no image work, got %d requests", len(gen.requests))
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &mockProvider{
		structure: []func() (string, error){func() (string, error) {
			cancel()
			return draftJSON(t, sampleDraft()), nil
		}},
		refine: func(string) (string, error) { return "x", nil },
	}
	_, _, err := newTestPipeline(provider, &mockGenerator{}, nil).Generate(ctx, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestCleanJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```":       `{"a":1}`,
		"Here you go: {\"a\":1} thanks": `{"a":1}`,
		`{"a":1}`:                       `{"a":1}`,
	}
	for in, want := range tests {
		if got := cleanJSON(in); got != want {
			t.Errorf("cleanJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlainText(t *testing.T) {
	got := plainText("# Title\n\nA *bright* photo of\nbread.\n\n1. warm\n2. cozy")
	if got != "Title A bright photo of bread. warm cozy" {
		t.Errorf("plainText = %q", got)
	}
}

func TestBuildStructurePrompt(t *testing.T) {
	req := document.GenerationRequest{Idea: "yoga studio", Language: "es", Sections: []string{"Hero", "Classes"}, ImageCount: 3}
	req.Normalize("en")
	p := buildStructurePrompt(req)
	for _, want := range []string{"yoga studio", "Landing page", "Spanish", "1. Hero", "2. Classes", "exactly 3 images"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestEstimateRequest(t *testing.T) {
	req := testRequest()
	req.ImageCount = 3

	e := EstimateRequest(req, "gemini-2.5-flash", "imagen-4.0-generate-001")
	if e.TextCalls != 5 {
		t.Errorf("expected 5 text calls, got %d", e.TextCalls)
	}
	if e.ImageCalls != 4 {
		t.Errorf("expected 4 image calls, got %d", e.ImageCalls)
	}
	if e.InputTokens == 0 || e.OutputTokens == 0 {
		t.Errorf("expected token estimates, got %d/%d", e.InputTokens, e.OutputTokens)
	}
	if got := e.Breakdown["images"]; got < 0.159 || got > 0.161 {
		t.Errorf("expected images cost 0.16, got %f", got)
	}
	sum := e.Breakdown["structure"] + e.Breakdown["refine"] + e.Breakdown["images"]
	if d := e.Total - sum; d > 1e-9 || d < -1e-9 {
		t.Errorf("total %f does not match breakdown sum %f", e.Total, sum)
	}

	unknown := EstimateRequest(req, "mystery", "mystery")
	if unknown.Total != 0 {
		t.Errorf("expected zero cost for unpriced models, got %f", unknown.Total)
	}
}
