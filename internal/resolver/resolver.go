// Package resolver splices rendered assets and metadata into generated
// markup by placeholder id.
package resolver

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/markup"
)

// Inputs are the assets and metadata to apply.
type Inputs struct {
	Images  []document.ImageAsset
	Favicon *document.FaviconAsset
	Meta    *document.Meta
	// URLFor maps an asset to the reference written into the markup. Nil
	// means the asset's RenderedURL. The favicon is passed with the
	// placeholder id "favicon".
	URLFor func(id, renderedURL string) string
	// AltText sets alt on image elements to the refined prompt.
	AltText bool
	// SkipSources leaves image src and the favicon link untouched, so the
	// markup keeps its empty placeholders. Alt text and metadata are still
	// applied and missing ids still reported.
	SkipSources bool
}

// Result is the resolved page.
type Result struct {
	HTML string
	// CSS is the text of the first style block, removed from HTML. Empty
	// when the markup had none.
	CSS string
	// Missing lists placeholder ids with no matching element.
	Missing []string
}

// FaviconID is the id passed to URLFor for the favicon.
const FaviconID = "favicon"

// Resolve parses markup, moves its first style block into Result.CSS and
// applies images, favicon and metadata. Running it again on its own output
// yields the same markup.
func Resolve(src string, in Inputs) (Result, error) {
	tree, err := markup.Parse(src)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.CSS = tree.ExtractStyle()

	urlFor := in.URLFor
	if urlFor == nil {
		urlFor = func(_, u string) string { return u }
	}

	seen := make(map[string]bool, len(in.Images))
	for _, img := range in.Images {
		// A repeated id is bound to its first asset only.
		if seen[img.PlaceholderID] {
			continue
		}
		seen[img.PlaceholderID] = true

		el := tree.FindByID(img.PlaceholderID)
		if el == nil {
			res.Missing = append(res.Missing, img.PlaceholderID)
			continue
		}
		if !in.SkipSources {
			markup.SetAttr(el, "src", urlFor(img.PlaceholderID, img.RenderedURL))
		}
		if in.AltText && img.FinalPrompt != "" {
			markup.SetAttr(el, "alt", img.FinalPrompt)
		}
	}

	if in.Favicon != nil && in.Favicon.RenderedURL != "" && !in.SkipSources {
		applyFavicon(tree, urlFor(FaviconID, in.Favicon.RenderedURL))
	}

	if in.Meta != nil {
		applyMeta(tree, *in.Meta)
	}

	res.HTML, err = tree.Render()
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func isIconLink(n *html.Node) bool {
	if n.Data != "link" {
		return false
	}
	rel, _ := markup.GetAttr(n, "rel")
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "icon" {
			return true
		}
	}
	return false
}

// applyFavicon keeps exactly one icon link.
func applyFavicon(tree *markup.Tree, href string) {
	links := tree.FindAll(isIconLink)
	if len(links) == 0 {
		tree.AppendToHead(markup.NewElement("link", "rel", "icon", "type", "image/jpeg", "href", href))
		return
	}
	markup.SetAttr(links[0], "href", href)
	for _, extra := range links[1:] {
		markup.Remove(extra)
	}
}

func applyMeta(tree *markup.Tree, meta document.Meta) {
	if meta.Description != "" {
		setNamedMeta(tree, "description", meta.Description)
	}
	if meta.Keywords != "" {
		setNamedMeta(tree, "keywords", meta.Keywords)
	}
	if meta.Title != "" {
		title := tree.FirstElement("title")
		if title == nil {
			title = markup.NewElement("title")
			tree.AppendToHead(title)
		}
		markup.SetText(title, meta.Title)
	}
}

func setNamedMeta(tree *markup.Tree, name, content string) {
	el := tree.FindElement(func(n *html.Node) bool {
		if n.Data != "meta" {
			return false
		}
		v, _ := markup.GetAttr(n, "name")
		return strings.EqualFold(v, name)
	})
	if el == nil {
		tree.AppendToHead(markup.NewElement("meta", "name", name, "content", content))
		return
	}
	markup.SetAttr(el, "content", content)
}
