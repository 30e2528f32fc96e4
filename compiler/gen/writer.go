package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/pgoose/compiler/load"
)

// fileTask represents a single file generation task.
type fileTask struct {
	name   string // output file name (relative to Target)
	render func() (*jen.File, error)
}

// Gen generates the typed records of the graph into the target directory
// and returns the paths of the written files.
func (g *Graph) Gen(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(g.Target, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	files := make([]fileTask, 0, len(g.Nodes)+1)
	for _, t := range g.Nodes {
		files = append(files, fileTask{
			name:   t.File(),
			render: func() (*jen.File, error) { return g.genType(t) },
		})
	}
	files = append(files, fileTask{
		name:   "models.go",
		render: func() (*jen.File, error) { return g.genModels(), nil },
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	paths := make([]string, len(files))
	for i, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			path, err := g.writeFile(f)
			paths[i] = path
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// writeFile renders, formats and writes a single file.
func (g *Graph) writeFile(f fileTask) (string, error) {
	jf, err := f.render()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := jf.Render(&buf); err != nil {
		return "", &GenerationError{File: f.name, Cause: err}
	}

	// goimports drops unused imports and sorts the remaining ones.
	fullPath := filepath.Join(g.Target, f.name)
	formatted, err := imports.Process(fullPath, buf.Bytes(), nil)
	if err != nil {
		// Errors are ignored here as the file already failed.
		debugPath := fullPath + ".error"
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return "", &GenerationError{File: f.name, Cause: fmt.Errorf("format: %w (unformatted written to %s)", err, debugPath)}
	}
	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return "", &GenerationError{File: f.name, Cause: err}
	}
	return fullPath, nil
}

// Generate builds the graph of the given schemas and writes its files.
func Generate(ctx context.Context, c *Config, schemas ...*load.Schema) ([]string, error) {
	g, err := NewGraph(c, schemas...)
	if err != nil {
		return nil, err
	}
	return g.Gen(ctx)
}
