package document

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// PageType is the kind of page to generate. Values outside the known set
// are passed to the model verbatim.
type PageType string

const (
	PageLanding    PageType = "landing"
	PagePortfolio  PageType = "portfolio"
	PageBusiness   PageType = "business"
	PageBlog       PageType = "blog"
	PageEvent      PageType = "event"
	PageProduct    PageType = "product"
	PageRestaurant PageType = "restaurant"
	PagePersonal   PageType = "personal"
)

// PageTypes lists the known page types in display order.
var PageTypes = []PageType{
	PageLanding, PagePortfolio, PageBusiness, PageBlog,
	PageEvent, PageProduct, PageRestaurant, PagePersonal,
}

// Known reports whether p is one of the predefined page types.
func (p PageType) Known() bool {
	for _, k := range PageTypes {
		if p == k {
			return true
		}
	}
	return false
}

// GenerationRequest is what the user asks for.
type GenerationRequest struct {
	Idea       string   `json:"idea"`
	PageType   PageType `json:"pageType"`
	Language   string   `json:"language"`
	Sections   []string `json:"sections"`
	ImageCount int      `json:"imageCount"`
}

// Normalize trims all fields, drops blank sections, defaults the page type
// and canonicalises the language tag. Unparseable tags fall back to
// defaultLang.
func (r *GenerationRequest) Normalize(defaultLang string) {
	r.Idea = strings.TrimSpace(r.Idea)
	r.PageType = PageType(strings.ToLower(strings.TrimSpace(string(r.PageType))))
	if r.PageType == "" {
		r.PageType = PageLanding
	}

	sections := r.Sections[:0]
	for _, s := range r.Sections {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}
	r.Sections = sections

	if defaultLang == "" {
		defaultLang = "en"
	}
	lang := strings.TrimSpace(r.Language)
	if lang == "" {
		lang = defaultLang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag, err = language.Parse(defaultLang)
		if err != nil {
			tag = language.English
		}
	}
	r.Language = tag.String()
}

// Validate checks the request. maxImages <= 0 disables the upper bound.
func (r *GenerationRequest) Validate(maxImages int) error {
	if strings.TrimSpace(r.Idea) == "" {
		return fmt.Errorf("idea must not be empty")
	}
	if r.ImageCount < 0 {
		return fmt.Errorf("image count must not be negative")
	}
	if maxImages > 0 && r.ImageCount > maxImages {
		return fmt.Errorf("image count %d exceeds the maximum of %d", r.ImageCount, maxImages)
	}
	seen := make(map[string]bool, len(r.Sections))
	for _, s := range r.Sections {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if seen[key] {
			return fmt.Errorf("duplicate section %q", s)
		}
		seen[key] = true
	}
	return nil
}

// LanguageName returns the English name of the request language, e.g.
// "German" for "de". Unknown tags return the tag itself.
func (r *GenerationRequest) LanguageName() string {
	tag, err := language.Parse(r.Language)
	if err != nil {
		return r.Language
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return r.Language
}
