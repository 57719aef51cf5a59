package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ziadkadry99/sitesmith/internal/document"
)

const structureSystemPrompt = `You are a senior web designer and front-end developer. You build complete, production-quality single-page websites.

Rules for htmlContent:
- Return one complete HTML5 document: <!DOCTYPE html>, <html lang>, <head> and <body>.
- Put ALL styling in exactly one <style> block inside <head>. No external stylesheets, no frameworks, no inline style attributes.
- The page must be responsive, accessible and use semantic elements (header, nav, main, section, footer).
- Do not reference external images. Every image is an <img> element with a unique id attribute and an empty src; it will be filled in later.
- Small inline scripts are allowed for navigation or interaction; never load remote scripts.

Rules for imagePrompts:
- Declare one entry per <img> placeholder. Its id must equal the id attribute of that <img> element.
- Use short, lowercase, hyphenated ids such as "hero-image", "about-photo", "gallery-1".
- Each prompt is a short visual description of the photo or illustration for that slot.

Also return a concise pageTitle, a metaDescription under 160 characters, comma-separated metaKeywords and a faviconPrompt describing a simple icon for the site.
Reply with JSON only.`

const refineSystemPrompt = `You are an art director writing prompts for an image generation model. Expand the short image idea into one detailed visual description: subject, composition, lighting, color palette, mood and photographic or illustration style. Keep it consistent with the website's overall concept. Reply with the description only, as a single plain-text paragraph of at most 80 words.`

const faviconStylePrefix = "A minimalist vector icon, flat design, simple geometric shapes, bold colors, centered on a plain background, no text: "

// buildStructurePrompt renders the user prompt for the structured call.
func buildStructurePrompt(req document.GenerationRequest) string {
	var b strings.Builder
	title := cases.Title(language.English)

	fmt.Fprintf(&b, "Website idea: %s\n", req.Idea)
	fmt.Fprintf(&b, "Page type: %s page\n", title.String(string(req.PageType)))
	fmt.Fprintf(&b, "Language: write all visible text, the title and the metadata in %s (%s).\n", req.LanguageName(), req.Language)

	if len(req.Sections) > 0 {
		b.WriteString("Sections, in this order:\n")
		for i, s := range req.Sections {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	} else {
		fmt.Fprintf(&b, "Choose the sections that suit a %s page.\n", req.PageType)
	}

	switch req.ImageCount {
	case 0:
		b.WriteString("Use no images: include no <img> elements and return an empty imagePrompts array.\n")
	case 1:
		b.WriteString("Use exactly 1 image: one <img> placeholder and one imagePrompts entry.\n")
	default:
		fmt.Fprintf(&b, "Use exactly %d images: %d <img> placeholders and %d imagePrompts entries, ids matching one-to-one.\n",
			req.ImageCount, req.ImageCount, req.ImageCount)
	}
	return b.String()
}

// buildRefinePrompt asks for a detailed version of one short image prompt.
func buildRefinePrompt(req document.GenerationRequest, spec document.ImagePromptSpec) string {
	return fmt.Sprintf("Website concept: %s (%s page)\nImage slot: %s\nShort image idea: %s",
		req.Idea, req.PageType, spec.ID, spec.Prompt)
}

// siteDraftSchema constrains the structured reply.
func siteDraftSchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pageTitle":       str,
			"metaDescription": str,
			"metaKeywords":    str,
			"faviconPrompt":   str,
			"htmlContent":     str,
			"imagePrompts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":     str,
						"prompt": str,
					},
					"required": []string{"id", "prompt"},
				},
			},
		},
		"required": []string{"pageTitle", "htmlContent", "imagePrompts"},
	}
}
