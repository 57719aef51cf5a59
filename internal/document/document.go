// Package document holds the generated page model and the single editing
// session that owns it.
package document

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ImagePromptSpec is one image the model asked for, keyed by the id of the
// element that will display it.
type ImagePromptSpec struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// SiteDraft is the structured reply of the text model.
type SiteDraft struct {
	PageTitle       string            `json:"pageTitle"`
	MetaDescription string            `json:"metaDescription"`
	MetaKeywords    string            `json:"metaKeywords"`
	FaviconPrompt   string            `json:"faviconPrompt"`
	HTMLContent     string            `json:"htmlContent"`
	ImagePrompts    []ImagePromptSpec `json:"imagePrompts"`
}

// Validate enforces the minimum a draft needs to become a document.
func (d *SiteDraft) Validate() error {
	if strings.TrimSpace(d.HTMLContent) == "" {
		return errors.New("htmlContent is empty")
	}
	for i, p := range d.ImagePrompts {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("imagePrompts[%d] has no id", i)
		}
	}
	return nil
}

// ImageAsset is a rendered image bound to a placeholder element.
type ImageAsset struct {
	PlaceholderID string `json:"placeholderId"`
	RenderedURL   string `json:"renderedUrl"`
	FinalPrompt   string `json:"finalPrompt"`
	Failed        bool   `json:"failed,omitempty"`
}

// FaviconAsset is the rendered page icon.
type FaviconAsset struct {
	RenderedURL string `json:"renderedUrl"`
	FinalPrompt string `json:"finalPrompt"`
}

// Meta is the page metadata applied to head.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// Document is the current generated page.
type Document struct {
	HTML      string        `json:"html"`
	CSS       string        `json:"css"`
	Images    []ImageAsset  `json:"images"`
	Favicon   *FaviconAsset `json:"favicon,omitempty"`
	Meta      Meta          `json:"meta"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Images = append([]ImageAsset(nil), d.Images...)
	if d.Favicon != nil {
		fav := *d.Favicon
		c.Favicon = &fav
	}
	return &c
}

// Image returns the asset bound to placeholder id.
func (d *Document) Image(id string) (ImageAsset, bool) {
	for _, img := range d.Images {
		if img.PlaceholderID == id {
			return img, true
		}
	}
	return ImageAsset{}, false
}

// HasContent reports whether the document has any markup.
func (d *Document) HasContent() bool {
	return d != nil && strings.TrimSpace(d.HTML) != ""
}

// FailedCount returns the number of images that fell back to the failure
// placeholder.
func (d *Document) FailedCount() int {
	n := 0
	for _, img := range d.Images {
		if img.Failed {
			n++
		}
	}
	return n
}
