package gen

import (
	"go/token"
	"path"
	"runtime"
)

// DefaultHeader is the comment written at the top of every generated file.
const DefaultHeader = "Code generated by pgoose. DO NOT EDIT."

// Config holds the global codegen configuration.
type Config struct {
	// Target is the directory the files are written to.
	Target string
	// Package is the import path of the generated package. Its last
	// element is the package name.
	Package string
	// Header is the comment at the top of each generated file.
	Header string
	// Workers bounds the number of files rendered in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// NewConfig returns a configuration with the given options applied.
// Target and Package are required.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Header: DefaultHeader, Workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.Target == "" {
		return nil, NewConfigError("Target", nil, "target directory is required")
	}
	if c.Package == "" {
		return nil, NewConfigError("Package", nil, "package is required")
	}
	return c, nil
}

// PackageName returns the name of the generated package.
func (c *Config) PackageName() string {
	return path.Base(c.Package)
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the output package import path.
// For example: "github.com/org/project/models".
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		if name := path.Base(pkg); !token.IsIdentifier(name) || token.IsKeyword(name) {
			return NewConfigError("Package", pkg, "last element must be a valid package name")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "must be at least 1")
		}
		c.Workers = n
		return nil
	}
}
