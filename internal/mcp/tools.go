package mcp

import "github.com/mark3labs/mcp-go/mcp"

var generateDiagramTool = mcp.NewTool("generate_diagram",
	mcp.WithDescription("Generate a Mermaid diagram from text, or change an existing diagram following instructions."),
	mcp.WithString("content",
		mcp.Description("Text to represent as a diagram"),
	),
	mcp.WithString("prompt",
		mcp.Description("Instructions for the diagram or the change to apply"),
	),
	mcp.WithString("current_diagram",
		mcp.Description("Existing Mermaid diagram to edit"),
	),
)

var splitSectionsTool = mcp.NewTool("split_sections",
	mcp.WithDescription("Split a markdown document into its top-level sections. Returns JSON with title and content per section."),
	mcp.WithString("markdown",
		mcp.Required(),
		mcp.Description("Markdown document text"),
	),
)

var outlineDiagramTool = mcp.NewTool("outline_diagram",
	mcp.WithDescription("Build a Mermaid overview diagram linking a document to its top-level sections, without calling a model."),
	mcp.WithString("markdown",
		mcp.Required(),
		mcp.Description("Markdown document text"),
	),
	mcp.WithString("title",
		mcp.Description("Name of the document node (default \"Document\")"),
	),
)

var renderDiagramTool = mcp.NewTool("render_diagram",
	mcp.WithDescription("Render Mermaid markup to SVG."),
	mcp.WithString("diagram",
		mcp.Required(),
		mcp.Description("Mermaid markup"),
	),
)
