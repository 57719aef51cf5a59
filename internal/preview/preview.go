// Package preview assembles the self-contained page shown in the sandboxed
// preview frame and the highlighted source views.
package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/markup"
	"github.com/ziadkadry99/sitesmith/internal/resolver"
)

// ContentSecurityPolicy is sent with every preview response. The sandbox
// directive gives the page an opaque origin so it cannot reach the editor.
const ContentSecurityPolicy = "sandbox allow-scripts"

// Compose resolves doc into one standalone HTML document with its
// stylesheet embedded in head. urlFor may rewrite asset references; nil
// keeps the rendered URLs.
func Compose(doc *document.Document, urlFor func(id, renderedURL string) string) (string, error) {
	if !doc.HasContent() {
		return "", apperr.ErrNothingGenerated
	}
	meta := doc.Meta
	res, err := resolver.Resolve(doc.HTML, resolver.Inputs{
		Images:  doc.Images,
		Favicon: doc.Favicon,
		Meta:    &meta,
		URLFor:  urlFor,
	})
	if err != nil {
		return "", err
	}

	tree, err := markup.Parse(res.HTML)
	if err != nil {
		return "", err
	}
	tree.EmbedStyle(doc.CSS)
	// A style block typed into the markup editor still applies after the
	// document stylesheet.
	tree.EmbedStyle(res.CSS)

	out, err := tree.Render()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(strings.ToLower(out), "<!doctype") {
		out = "<!DOCTYPE html>\n" + out
	}
	return out, nil
}

// Render returns the preview page for doc. It rebuilds from scratch on
// every call.
func Render(doc *document.Document) (string, error) {
	return Compose(doc, nil)
}

// Source kinds accepted by Source.
const (
	SourceHTML = "html"
	SourceCSS  = "css"
)

var highlighter = goldmark.New(
	goldmark.WithExtensions(
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
)

// Source renders text as a syntax-highlighted HTML fragment for the source
// tabs.
func Source(kind, text string) (string, error) {
	if kind != SourceHTML && kind != SourceCSS {
		return "", fmt.Errorf("unknown source kind %q", kind)
	}
	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	src := fence + kind + "\n" + text + "\n" + fence + "\n"

	var buf bytes.Buffer
	if err := highlighter.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("highlighting %s: %w", kind, err)
	}
	return buf.String(), nil
}
