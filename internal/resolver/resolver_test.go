package resolver

import (
	"strings"
	"testing"

	"github.com/ziadkadry99/sitesmith/internal/document"
)

const draft = `<!DOCTYPE html><html><head><title>Draft</title>
<style>h1 { color: navy; }</style></head>
<body><h1>Bakery</h1><img id="hero-image" src=""><img id="gallery-1"></body></html>`

func sampleInputs() Inputs {
	return Inputs{
		Images: []document.ImageAsset{
			{PlaceholderID: "hero-image", RenderedURL: "data:image/png;base64,AAA", FinalPrompt: "warm bread"},
			{PlaceholderID: "gallery-1", RenderedURL: "data:image/png;base64,BBB", FinalPrompt: "croissants"},
			{PlaceholderID: "not-in-markup", RenderedURL: "data:image/png;base64,CCC"},
		},
		Favicon: &document.FaviconAsset{RenderedURL: "data:image/png;base64,FAV"},
		Meta:    &document.Meta{Title: "Sunrise Bakery", Description: "Fresh bread daily", Keywords: "bread,bakery"},
		AltText: true,
	}
}

func TestResolveAppliesAssets(t *testing.T) {
	res, err := Resolve(draft, sampleInputs())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CSS != "h1 { color: navy; }" {
		t.Errorf("css = %q", res.CSS)
	}
	for _, want := range []string{
		`id="hero-image" src="data:image/png;base64,AAA" alt="warm bread"`,
		`src="data:image/png;base64,BBB"`,
		`<link rel="icon" type="image/jpeg" href="data:image/png;base64,FAV"/>`,
		`<meta name="description" content="Fresh bread daily"/>`,
		`<meta name="keywords" content="bread,bakery"/>`,
		`<title>Sunrise Bakery</title>`,
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("missing %q in:\n%s", want, res.HTML)
		}
	}
	if strings.Contains(res.HTML, "<style") {
		t.Error("style block should be split out")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "not-in-markup" {
		t.Errorf("missing = %v", res.Missing)
	}
}

func TestResolveIdempotent(t *testing.T) {
	in := sampleInputs()
	first, err := Resolve(draft, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve(first.HTML, in)
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if first.HTML != second.HTML {
		t.Errorf("not idempotent:\n%s\n---\n%s", first.HTML, second.HTML)
	}
	if strings.Count(second.HTML, `rel="icon"`) != 1 {
		t.Error("expected exactly one icon link")
	}
	if strings.Count(second.HTML, `name="description"`) != 1 {
		t.Error("expected exactly one description meta")
	}
}

func TestResolveCollapsesExistingIconLinks(t *testing.T) {
	src := `<html><head><link rel="icon" href="a.ico"><link rel="shortcut icon" href="b.ico"></head><body></body></html>`
	res, err := Resolve(src, Inputs{Favicon: &document.FaviconAsset{RenderedURL: "new.jpeg"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if strings.Count(res.HTML, "icon") != 1 || !strings.Contains(res.HTML, `href="new.jpeg"`) {
		t.Errorf("icon links not collapsed: %s", res.HTML)
	}
}

func TestResolveDuplicateIDsFirstWins(t *testing.T) {
	src := `<body><img id="a"><img id="a" src="keep"></body>`
	res, err := Resolve(src, Inputs{Images: []document.ImageAsset{{PlaceholderID: "a", RenderedURL: "new"}}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(res.HTML, `<img id="a" src="new"/><img id="a" src="keep"/>`) {
		t.Errorf("unexpected markup: %s", res.HTML)
	}
}

func TestResolveURLFor(t *testing.T) {
	in := sampleInputs()
	in.URLFor = func(id, _ string) string { return "images/" + id + ".jpeg" }
	res, err := Resolve(draft, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(res.HTML, `src="images/hero-image.jpeg"`) {
		t.Error("image path not substituted")
	}
	if !strings.Contains(res.HTML, `href="images/favicon.jpeg"`) {
		t.Error("favicon path not substituted")
	}
}

func TestResolveNoInputsKeepsMarkup(t *testing.T) {
	res, err := Resolve(`<p id="x">hello</p>`, Inputs{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(res.HTML, `<p id="x">hello</p>`) || res.CSS != "" || len(res.Missing) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestResolveRepeatedAssetIDFirstWins(t *testing.T) {
	src := `<body><img id="a"></body>`
	res, err := Resolve(src, Inputs{Images: []document.ImageAsset{
		{PlaceholderID: "a", RenderedURL: "first"},
		{PlaceholderID: "a", RenderedURL: "second"},
	}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(res.HTML, `src="first"`) || strings.Contains(res.HTML, "second") {
		t.Errorf("unexpected markup: %s", res.HTML)
	}
}

func TestResolveSkipSources(t *testing.T) {
	in := sampleInputs()
	in.SkipSources = true
	res, err := Resolve(draft, in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if strings.Contains(res.HTML, "data:") || strings.Contains(res.HTML, `rel="icon"`) {
		t.Errorf("sources applied despite SkipSources:\n%s", res.HTML)
	}
	for _, want := range []string{`alt="warm bread"`, `<title>Sunrise Bakery</title>`} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("markup missing %q", want)
		}
	}
	if len(res.Missing) != 1 || res.Missing[0] != "not-in-markup" {
		t.Errorf("missing = %v", res.Missing)
	}
}
