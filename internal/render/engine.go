// Package render defines the render engine contract and the process-wide
// registry that maps names to engines.
package render

import (
	"context"
	"io"
)

// Engine converts markup source text into another textual representation.
type Engine interface {
	// Render parses source and returns the converted text.
	// Any failure is reported as an *Error.
	Render(ctx context.Context, source string) (string, error)
	// RenderTo reads source text from in and writes the converted text to out.
	// It does not close either side. Any failure is reported as an *Error.
	RenderTo(ctx context.Context, in io.Reader, out io.Writer) error
}

// Func converts a source string. It is the minimal shape of a conversion
// strategy; see StreamEngine.
type Func func(ctx context.Context, source string) (string, error)

// StreamEngine returns an Engine that reads the whole input before calling fn
// and writes the result in full. Errors from fn that are not already *Error
// are wrapped.
func StreamEngine(fn Func) Engine {
	return &funcEngine{fn: fn}
}

type funcEngine struct {
	fn Func
}

func (e *funcEngine) Render(ctx context.Context, source string) (string, error) {
	out, err := e.fn(ctx, source)
	if err != nil {
		return "", normalize(err, "converting source")
	}
	return out, nil
}

func (e *funcEngine) RenderTo(ctx context.Context, in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return Wrap(err, "reading input")
	}
	result, err := e.Render(ctx, string(data))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, result); err != nil {
		return Wrap(err, "writing output")
	}
	return nil
}

// Passthrough is the engine seeded into the default slot. It returns its
// input unchanged.
type Passthrough struct{}

// NewPassthrough returns the passthrough engine.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Render returns source as-is.
func (p *Passthrough) Render(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Wrap(err, "render cancelled")
	}
	return source, nil
}

// RenderTo copies in to out.
func (p *Passthrough) RenderTo(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, "render cancelled")
	}
	if _, err := io.Copy(out, in); err != nil {
		return Wrap(err, "copying input")
	}
	return nil
}
