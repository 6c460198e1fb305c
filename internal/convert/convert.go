// Package convert resolves engines through the registry and runs them over
// strings and files.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dejo1307/jaduni/internal/config"
	"github.com/dejo1307/jaduni/internal/render"
)

var (
	// ErrUnknownEngine is returned when no engine is bound to a name.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrEngineDisabled is returned for engines excluded by the config.
	ErrEngineDisabled = errors.New("engine disabled by config")
	// ErrSameFile is returned when the output path is the input file.
	ErrSameFile = errors.New("output would overwrite input")
	// ErrBadArtifactName is returned for artifact names that are not plain
	// file names.
	ErrBadArtifactName = errors.New("artifact name must be a plain file name")
)

// Meta describes one rendering run.
type Meta struct {
	Engine      string `json:"engine"`
	Input       string `json:"input,omitempty"`
	Output      string `json:"output,omitempty"`
	InputBytes  int64  `json:"input_bytes"`
	OutputBytes int64  `json:"output_bytes"`
	RenderedAt  string `json:"rendered_at"`
	Duration    string `json:"duration"`
}

// Result is a rendered string and its metadata.
type Result struct {
	Text string
	Meta Meta
}

// EngineInfo is a registry entry as seen through the config.
type EngineInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Default bool   `json:"default"`
}

// Converter runs registered engines according to the config.
type Converter struct {
	cfg      *config.Config
	registry *render.Registry
}

// New creates a Converter. A nil registry selects the process-wide one.
func New(cfg *config.Config, registry *render.Registry) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	if registry == nil {
		registry = render.Process()
	}
	return &Converter{cfg: cfg, registry: registry}
}

// Registry returns the registry engines are resolved from.
func (c *Converter) Registry() *render.Registry {
	return c.registry
}

// Engine resolves name to an engine. An empty name selects the configured
// default engine, then the registry default.
func (c *Converter) Engine(name string) (string, render.Engine, error) {
	if name == "" {
		name = c.cfg.DefaultEngine
	}
	if name == "" || name == render.DefaultName {
		return render.DefaultName, c.registry.Default(), nil
	}

	e, err := c.registry.Get(name)
	if err != nil {
		return "", nil, err
	}
	if !c.cfg.IsEngineEnabled(name) {
		return "", nil, fmt.Errorf("engine %q: %w", name, ErrEngineDisabled)
	}
	if e == nil {
		return "", nil, fmt.Errorf("engine %q: %w", name, ErrUnknownEngine)
	}
	return name, e, nil
}

// Engines lists every registered engine.
func (c *Converter) Engines() []EngineInfo {
	names := c.registry.Names()
	infos := make([]EngineInfo, 0, len(names))
	for _, name := range names {
		isDefault := name == render.DefaultName
		infos = append(infos, EngineInfo{
			Name:    name,
			Enabled: isDefault || c.cfg.IsEngineEnabled(name),
			Default: isDefault,
		})
	}
	return infos
}

// RenderString renders source with the named engine.
func (c *Converter) RenderString(ctx context.Context, name, source string) (*Result, error) {
	start := time.Now()

	resolved, e, err := c.Engine(name)
	if err != nil {
		return nil, err
	}
	if limit := c.cfg.Limits.MaxSourceBytes; int64(len(source)) > limit {
		return nil, render.Errorf("source is %d bytes, limit is %d", len(source), limit)
	}

	text, err := e.Render(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("engine %s: %w", resolved, err)
	}

	return &Result{
		Text: text,
		Meta: Meta{
			Engine:      resolved,
			InputBytes:  int64(len(source)),
			OutputBytes: int64(len(text)),
			RenderedAt:  start.UTC().Format(time.RFC3339),
			Duration:    time.Since(start).String(),
		},
	}, nil
}

// OutputPath returns where RenderFile writes when no output path is given:
// the input's base name with the configured extension, under the output dir.
func (c *Converter) OutputPath(inPath string) string {
	base := filepath.Base(inPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.cfg.Output.Dir, base+c.cfg.Output.Extension)
}

// RenderFile renders the file at inPath into outPath with the named engine.
// An empty outPath selects OutputPath(inPath). The result is written to a
// temporary file and renamed over outPath only when rendering succeeds.
func (c *Converter) RenderFile(ctx context.Context, name, inPath, outPath string) (*Meta, error) {
	if outPath == "" {
		outPath = c.OutputPath(inPath)
	}
	same, err := samePath(inPath, outPath)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, fmt.Errorf("output %s: %w", outPath, ErrSameFile)
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	meta, renderErr := c.RenderStream(ctx, name, inPath, tmp)
	closeErr := tmp.Close()
	if renderErr != nil {
		return nil, renderErr
	}
	if closeErr != nil {
		return nil, fmt.Errorf("closing output: %w", closeErr)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return nil, fmt.Errorf("replacing output: %w", err)
	}

	meta.Output = outPath
	log.Printf("[convert] wrote %s (%d bytes)", outPath, meta.OutputBytes)
	return meta, nil
}

// RenderStream renders the file at inPath into out with the named engine.
// out is not closed.
func (c *Converter) RenderStream(ctx context.Context, name, inPath string, out io.Writer) (*Meta, error) {
	start := time.Now()

	resolved, e, err := c.Engine(name)
	if err != nil {
		return nil, err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if limit := c.cfg.Limits.MaxSourceBytes; info.Size() > limit {
		return nil, render.Errorf("%s is %d bytes, limit is %d", inPath, info.Size(), limit)
	}

	cw := &countingWriter{w: out}
	if err := e.RenderTo(ctx, in, cw); err != nil {
		return nil, fmt.Errorf("engine %s: %w", resolved, err)
	}

	meta := &Meta{
		Engine:      resolved,
		Input:       inPath,
		InputBytes:  info.Size(),
		OutputBytes: cw.n,
		RenderedAt:  start.UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
	log.Printf("[convert] rendered %s with %s (%d bytes)", inPath, resolved, meta.OutputBytes)
	return meta, nil
}

// samePath reports whether a and b name the same file. A missing b is never
// the same as a.
func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", b, err)
	}
	if absA == absB {
		return true, nil
	}

	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteResult writes a rendered result as <name><ext> plus a <name>.meta.json
// sidecar into the configured output dir, returning the artifact path.
// name must be a plain file name.
func (c *Converter) WriteResult(name string, res *Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("no result to write")
	}
	if err := checkArtifactName(name); err != nil {
		return "", err
	}

	outDir := c.cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(outDir, name+c.cfg.Output.Extension)
	if err := os.WriteFile(path, []byte(res.Text), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	log.Printf("[convert] wrote %s (%d bytes)", path, len(res.Text))

	res.Meta.Output = path
	if err := WriteMeta(filepath.Join(outDir, name+".meta.json"), &res.Meta); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMeta writes m as indented JSON.
func WriteMeta(path string, m *Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func checkArtifactName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("artifact %q: %w", name, ErrBadArtifactName)
	}
	return nil
}
