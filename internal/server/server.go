package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dejo1307/jaduni/internal/convert"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and connects it to the converter.
type Server struct {
	mcp  *mcp.Server
	conv *convert.Converter
}

// New creates a new MCP server wired to the given converter.
func New(conv *convert.Converter) (*Server, error) {
	s := &Server{
		conv: conv,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "jaduni",
		Version: "0.1.0",
	}, nil)

	s.mcp = mcpServer
	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// registerResources adds MCP resources describing the registry.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         "render://engines",
		Name:        "Render Engines",
		Description: "Registered render engines and whether the config enables them",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.enginesJSON()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: content, MIMEType: "application/json"},
			},
		}, nil
	})
}

// renderArgs are the arguments for the render tool.
type renderArgs struct {
	Engine string `json:"engine,omitempty" jsonschema:"Engine name. Defaults to the configured default engine."`
	Source string `json:"source" jsonschema:"Markup source text to render"`
	Save   string `json:"save,omitempty" jsonschema:"Optional artifact name. When set the result is also written to the output dir."`
}

// renderFileArgs are the arguments for the render_file tool.
type renderFileArgs struct {
	Engine string `json:"engine,omitempty" jsonschema:"Engine name. Defaults to the configured default engine."`
	Input  string `json:"input" jsonschema:"Path of the file to render"`
	Output string `json:"output,omitempty" jsonschema:"Path to write the result to. Defaults to the output dir."`
}

type listEnginesArgs struct{}

// registerTools adds MCP tools for rendering and registry inspection.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "render",
		Description: "Render markup source text with a registered render engine and return the converted text.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args renderArgs) (*mcp.CallToolResult, any, error) {
		return s.handleRender(ctx, args), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "render_file",
		Description: "Render a markup file with a registered render engine and write the result to disk.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args renderFileArgs) (*mcp.CallToolResult, any, error) {
		return s.handleRenderFile(ctx, args), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_engines",
		Description: "List registered render engines as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listEnginesArgs) (*mcp.CallToolResult, any, error) {
		content, err := s.enginesJSON()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(content), nil, nil
	})
}

func (s *Server) handleRender(ctx context.Context, args renderArgs) *mcp.CallToolResult {
	res, err := s.conv.RenderString(ctx, args.Engine, args.Source)
	if err != nil {
		return errorResult(fmt.Sprintf("render failed: %v", err))
	}
	if args.Save != "" {
		path, err := s.conv.WriteResult(args.Save, res)
		if err != nil {
			return errorResult(fmt.Sprintf("saving result: %v", err))
		}
		log.Printf("[server] saved %s result to %s", res.Meta.Engine, path)
	}
	return textResult(res.Text)
}

func (s *Server) handleRenderFile(ctx context.Context, args renderFileArgs) *mcp.CallToolResult {
	if args.Input == "" {
		return errorResult("input is required")
	}

	meta, err := s.conv.RenderFile(ctx, args.Engine, args.Input, args.Output)
	if err != nil {
		return errorResult(fmt.Sprintf("render failed: %v", err))
	}

	summary := fmt.Sprintf(
		"Rendered successfully.\n\n"+
			"- Engine: %s\n"+
			"- Input: %s (%d bytes)\n"+
			"- Output: %s (%d bytes)\n"+
			"- Duration: %s\n",
		meta.Engine,
		meta.Input, meta.InputBytes,
		meta.Output, meta.OutputBytes,
		meta.Duration,
	)
	return textResult(summary)
}

func (s *Server) enginesJSON() (string, error) {
	data, err := json.MarshalIndent(s.conv.Engines(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling engines: %w", err)
	}
	return string(data), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
