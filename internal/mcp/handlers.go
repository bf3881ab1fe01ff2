package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/diagramify/diagramify/internal/diagrams"
	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/markdown"
	"github.com/diagramify/diagramify/internal/render"
)

// handleGenerateDiagram runs one generation or edit request.
func (s *Server) handleGenerateDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := generate.Request{
		Content:        request.GetString("content", ""),
		Prompt:         request.GetString("prompt", ""),
		CurrentDiagram: request.GetString("current_diagram", ""),
	}

	diagram, err := s.gen.Generate(ctx, req)
	switch {
	case errors.Is(err, generate.ErrMissingInput):
		return mcp.NewToolResultError("content or current_diagram is required"), nil
	case errors.Is(err, diagrams.ErrNoChanges):
		return mcp.NewToolResultError("the model returned the diagram unchanged; rephrase the instructions"), nil
	case err != nil:
		s.logger.Error("mcp diagram generation failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	return mcp.NewToolResultText(diagram), nil
}

type sectionSummary struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// handleSplitSections returns the sections of a markdown document as JSON.
func (s *Server) handleSplitSections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: markdown"), nil
	}

	sections := markdown.Split(text)
	out := make([]sectionSummary, len(sections))
	for i, sec := range sections {
		out[i] = sectionSummary{Index: i, Title: sec.Title, Content: sec.Content}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding sections: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleOutlineDiagram links the document to its section titles.
func (s *Server) handleOutlineDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: markdown"), nil
	}

	sections := markdown.Split(text)
	if len(sections) == 0 {
		return mcp.NewToolResultError("the document has no top-level headings"), nil
	}
	title := request.GetString("title", "Document")
	return mcp.NewToolResultText(diagrams.Outline(title, markdown.Titles(sections))), nil
}

// handleRenderDiagram renders markup through the configured engine.
func (s *Server) handleRenderDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup, err := request.RequireString("diagram")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: diagram"), nil
	}

	svg, err := render.Export(ctx, s.engine, "mcp", markup, "", render.FormatSVG, s.logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(svg)), nil
}
