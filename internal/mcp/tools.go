package mcp

import "github.com/mark3labs/mcp-go/mcp"

// generateSiteTool defines the generate_site MCP tool.
var generateSiteTool = mcp.NewTool("generate_site",
	mcp.WithDescription("Generate a complete single-page website from a description. Replaces the current website and resets undo history."),
	mcp.WithString("idea",
		mcp.Required(),
		mcp.Description("What the website is about"),
	),
	mcp.WithString("page_type",
		mcp.Description("Kind of page (default landing)"),
		mcp.Enum("landing", "portfolio", "business", "blog", "event", "product", "restaurant", "personal"),
	),
	mcp.WithString("language",
		mcp.Description("BCP 47 language tag for the content, e.g. en, de, pt-BR"),
	),
	mcp.WithString("sections",
		mcp.Description("Comma-separated section names in order, e.g. \"Hero, About, Contact\""),
	),
	mcp.WithNumber("image_count",
		mcp.Description("Number of images to generate (default 4)"),
	),
)

// getDocumentTool defines the get_document MCP tool.
var getDocumentTool = mcp.NewTool("get_document",
	mcp.WithDescription("Get the current website markup, stylesheet, metadata or image list."),
	mcp.WithString("part",
		mcp.Description("Which part to return (default summary)"),
		mcp.Enum("summary", "html", "css", "images"),
	),
)

// updateDocumentTool defines the update_document MCP tool.
var updateDocumentTool = mcp.NewTool("update_document",
	mcp.WithDescription("Replace the website markup and/or stylesheet. Records an undo step."),
	mcp.WithString("html",
		mcp.Description("New HTML markup (omit to keep the current markup)"),
	),
	mcp.WithString("css",
		mcp.Description("New stylesheet (omit to keep the current stylesheet)"),
	),
)

// undoTool defines the undo MCP tool.
var undoTool = mcp.NewTool("undo",
	mcp.WithDescription("Undo the last edit to the website."),
)

// redoTool defines the redo MCP tool.
var redoTool = mcp.NewTool("redo",
	mcp.WithDescription("Redo the last undone edit."),
)

// exportSiteTool defines the export_site MCP tool.
var exportSiteTool = mcp.NewTool("export_site",
	mcp.WithDescription("Export the website as a zip archive (index.html plus images/) to a file."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Destination file path, e.g. ./website-export.zip"),
	),
)
