package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dejo1307/jaduni/internal/config"
	"github.com/dejo1307/jaduni/internal/convert"
	"github.com/dejo1307/jaduni/internal/render"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// newTestServer creates a Server over a private registry holding an "upper" engine.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()

	reg := render.NewRegistry(nil)
	_ = reg.Set("upper", render.StreamEngine(func(ctx context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	}))

	srv, err := New(convert.New(cfg, reg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestHandleRender(t *testing.T) {
	srv := newTestServer(t)

	res := srv.handleRender(context.Background(), renderArgs{Engine: "upper", Source: "hi"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "HI" {
		t.Errorf("render = %q, want HI", got)
	}

	res = srv.handleRender(context.Background(), renderArgs{Source: "as is"})
	if got := resultText(t, res); got != "as is" {
		t.Errorf("default render = %q", got)
	}
}

func TestHandleRender_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		engine string
		want   string
	}{
		{"unknown engine", "creole", "unknown engine"},
		{"blank engine", "   ", "invalid argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := srv.handleRender(context.Background(), renderArgs{Engine: tt.engine, Source: "x"})
			if !res.IsError {
				t.Fatal("expected error result")
			}
			if got := resultText(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("error text %q does not mention %q", got, tt.want)
			}
		})
	}
}

func TestHandleRenderFile(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "page.wiki")
	out := filepath.Join(dir, "page.txt")
	if err := os.WriteFile(in, []byte("body"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := srv.handleRenderFile(context.Background(), renderFileArgs{Engine: "upper", Input: in, Output: out})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "Engine: upper") {
		t.Errorf("summary missing engine: %s", resultText(t, res))
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "BODY" {
		t.Errorf("output = %q, %v", data, err)
	}

	res = srv.handleRenderFile(context.Background(), renderFileArgs{})
	if !res.IsError {
		t.Error("expected error result for missing input")
	}
}

func TestEnginesJSON(t *testing.T) {
	srv := newTestServer(t)

	content, err := srv.enginesJSON()
	if err != nil {
		t.Fatal(err)
	}
	var infos []convert.EngineInfo
	if err := json.Unmarshal([]byte(content), &infos); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "default" || !infos[0].Default || infos[1].Name != "upper" {
		t.Errorf("engines = %+v", infos)
	}
}

func TestHandleRender_Save(t *testing.T) {
	srv := newTestServer(t)

	res := srv.handleRender(context.Background(), renderArgs{Engine: "upper", Source: "keep", Save: "note"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "KEEP" {
		t.Errorf("render = %q", got)
	}
	data, err := os.ReadFile(srv.conv.OutputPath("note"))
	if err != nil || string(data) != "KEEP" {
		t.Errorf("saved artifact = %q, %v", data, err)
	}

	res = srv.handleRender(context.Background(), renderArgs{Source: "x", Save: "../escape"})
	if !res.IsError {
		t.Error("expected error result for path-like save name")
	}
}

// connect runs srv over an in-memory transport and returns a client session.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := srv.mcp.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
	})
	return cs
}

func TestMCP_ToolsAndResources(t *testing.T) {
	srv := newTestServer(t)
	cs := connect(t, srv)
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"render", "render_file", "list_engines"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "render",
		Arguments: map[string]any{"engine": "upper", "source": "over the wire"},
	})
	if err != nil {
		t.Fatalf("CallTool(render): %v", err)
	}
	if res.IsError {
		t.Fatalf("render returned error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "OVER THE WIRE" {
		t.Errorf("render = %q", got)
	}

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "list_engines", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool(list_engines): %v", err)
	}
	if !strings.Contains(resultText(t, res), `"upper"`) {
		t.Errorf("list_engines = %s", resultText(t, res))
	}

	rr, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "render://engines"})
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(rr.Contents) != 1 {
		t.Fatalf("expected 1 resource content, got %d", len(rr.Contents))
	}
	var infos []convert.EngineInfo
	if err := json.Unmarshal([]byte(rr.Contents[0].Text), &infos); err != nil {
		t.Fatalf("resource is not JSON: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("resource engines = %+v", infos)
	}
}
