package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

const notGenerated = "No website has been generated yet. Call generate_site first."

// handleGenerateSite runs the pipeline synchronously and publishes the result.
func (s *Server) handleGenerateSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idea, err := request.RequireString("idea")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: idea"), nil
	}

	req := document.GenerationRequest{
		Idea:       idea,
		PageType:   document.PageType(request.GetString("page_type", "")),
		Language:   request.GetString("language", ""),
		Sections:   strings.Split(request.GetString("sections", ""), ","),
		ImageCount: request.GetInt("image_count", 4),
	}
	req.Normalize(s.deps.DefaultLanguage)
	if err := req.Validate(s.deps.MaxImageCount); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid request: %v", err)), nil
	}

	if err := s.deps.Session.BeginGeneration(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer s.deps.Session.EndGeneration()

	doc, stats, err := s.deps.Generator.GenerateWithReporter(ctx, req, progress.Nop{})
	if err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	s.deps.Session.Publish(doc)

	var b strings.Builder
	fmt.Fprintf(&b, "Generated %q with %d images", doc.Meta.Title, len(doc.Images))
	if n := doc.FailedCount(); n > 0 {
		fmt.Fprintf(&b, " (%d failed and use a placeholder)", n)
	}
	b.WriteString(".\n")
	if doc.Favicon == nil {
		b.WriteString("No favicon could be rendered.\n")
	}
	if stats != nil {
		fmt.Fprintf(&b, "Tokens: %d in / %d out, estimated cost $%.4f, took %s.\n",
			stats.InputTokens, stats.OutputTokens, stats.EstimatedCost, stats.Duration.Round(1e6))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleGetDocument returns one part of the current document.
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.deps.Session.Snapshot()
	if doc == nil {
		return mcp.NewToolResultError(notGenerated), nil
	}

	switch part := request.GetString("part", "summary"); part {
	case "html":
		return mcp.NewToolResultText(doc.HTML), nil
	case "css":
		return mcp.NewToolResultText(doc.CSS), nil
	case "images":
		type imageInfo struct {
			ID     string `json:"id"`
			Prompt string `json:"prompt"`
			Failed bool   `json:"failed"`
		}
		infos := make([]imageInfo, 0, len(doc.Images))
		for _, img := range doc.Images {
			infos = append(infos, imageInfo{ID: img.PlaceholderID, Prompt: img.FinalPrompt, Failed: img.Failed})
		}
		b, _ := json.MarshalIndent(infos, "", "  ")
		return mcp.NewToolResultText(string(b)), nil
	case "summary":
		return mcp.NewToolResultText(summarize(doc, s.deps.Session.History())), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown part %q", part)), nil
	}
}

func summarize(doc *document.Document, h document.HistoryState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Meta.Title)
	if doc.Meta.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", doc.Meta.Description)
	}
	fmt.Fprintf(&b, "- Markup: %d bytes\n", len(doc.HTML))
	fmt.Fprintf(&b, "- Stylesheet: %d bytes\n", len(doc.CSS))
	fmt.Fprintf(&b, "- Images: %d (%d failed)\n", len(doc.Images), doc.FailedCount())
	fmt.Fprintf(&b, "- Favicon: %t\n", doc.Favicon != nil)
	fmt.Fprintf(&b, "- History: step %d of %d\n", h.Cursor+1, h.Len)
	return b.String()
}

// handleUpdateDocument replaces markup and/or stylesheet.
func (s *Server) handleUpdateDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.deps.Session.Snapshot()
	if doc == nil {
		return mcp.NewToolResultError(notGenerated), nil
	}
	html := request.GetString("html", doc.HTML)
	css := request.GetString("css", doc.CSS)

	changed, err := s.deps.Session.Edit(html, css)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !changed {
		return mcp.NewToolResultText("No changes."), nil
	}
	return mcp.NewToolResultText("Website updated."), nil
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.deps.Session.Undo() {
		return mcp.NewToolResultText("Nothing to undo."), nil
	}
	return mcp.NewToolResultText(historyLine("Undone", s.deps.Session.History())), nil
}

func (s *Server) handleRedo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.deps.Session.Redo() {
		return mcp.NewToolResultText("Nothing to redo."), nil
	}
	return mcp.NewToolResultText(historyLine("Redone", s.deps.Session.History())), nil
}

func historyLine(verb string, h document.HistoryState) string {
	return fmt.Sprintf("%s. Now at step %d of %d.", verb, h.Cursor+1, h.Len)
}

// handleExportSite writes the export archive to a file.
func (s *Server) handleExportSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	doc := s.deps.Session.Snapshot()
	var buf strings.Builder
	if err := s.deps.Assembler.Export(ctx, doc, &buf); err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("creating directory: %v", err)), nil
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("writing archive: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Exported %d bytes to %s", buf.Len(), path)), nil
}
