package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
)

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// parseDraft decodes and validates the structured reply.
func parseDraft(content string) (*document.SiteDraft, error) {
	raw := cleanJSON(content)
	if raw == "" {
		return nil, &apperr.ParseError{What: "site draft", Err: errEmptyReply}
	}
	var draft document.SiteDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, &apperr.ParseError{What: "site draft", Err: err}
	}
	if err := draft.Validate(); err != nil {
		return nil, &apperr.ParseError{What: "site draft", Err: err}
	}
	for i := range draft.ImagePrompts {
		draft.ImagePrompts[i].ID = strings.TrimSpace(draft.ImagePrompts[i].ID)
		draft.ImagePrompts[i].Prompt = strings.TrimSpace(draft.ImagePrompts[i].Prompt)
	}
	return &draft, nil
}

var md = goldmark.New()

// plainText flattens a markdown reply into a single line of text. Models
// often decorate prompts with headings, bold or lists.
func plainText(src string) string {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}
