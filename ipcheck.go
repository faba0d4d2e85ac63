// Package ipcheck checksums an information package and validates it against
// a remote validation service.
//
// Example usage:
//
//	cfg := ipcheck.DefaultConfig()
//	cfg.ServiceURL = "https://validator.example.org"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	report, tree, err := ipcheck.Check(context.Background(), "package.zip", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
package ipcheck

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	httpAdapter "github.com/bft-labs/ipcheck/internal/adapters/http"
	logAdapter "github.com/bft-labs/ipcheck/internal/adapters/log"
	"github.com/bft-labs/ipcheck/internal/adapters/fs"
	"github.com/bft-labs/ipcheck/internal/app"
	"github.com/bft-labs/ipcheck/internal/checksum"
	"github.com/bft-labs/ipcheck/internal/cliconfig"
	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/render"
)

// Config holds the client configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Report is a validation report returned by the service.
type Report = domain.ValidationReport

// Tree is a rendered report.
type Tree = render.Tree

// Workflow is one select/digest/submit cycle owner.
type Workflow = app.Workflow

// DefaultServiceURL is the default validation service base URL.
const DefaultServiceURL = cliconfig.DefaultServiceURL

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Logger returns the package-level zerolog logger used by the client.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}

// NewWorkflow wires a workflow from a validated configuration. A report
// store is attached when cfg.SaveReport is set.
func NewWorkflow(cfg Config, logger zerolog.Logger, opts ...app.Option) (*Workflow, error) {
	engine, err := checksum.New(domain.Algorithm(cfg.Algorithm), cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	l := logAdapter.NewZerologAdapterWithLogger(logger)
	validator := httpAdapter.NewValidator(&http.Client{Timeout: cfg.HTTPTimeout}, l, cfg.ServiceURL)

	if cfg.SaveReport != "" {
		opts = append([]app.Option{app.WithReportStore(fs.NewReportFileStore(cfg.SaveReport))}, opts...)
	}
	return app.NewWorkflow(engine, validator, l, opts...), nil
}

// Check computes the digest of the file at path, submits it and returns
// the report with its rendered tree.
func Check(ctx context.Context, path string, cfg Config) (Report, Tree, error) {
	file, err := fs.SelectLocalFile(path)
	if err != nil {
		return Report{}, Tree{}, err
	}
	wf, err := NewWorkflow(cfg, Logger())
	if err != nil {
		return Report{}, Tree{}, err
	}
	v, err := wf.Check(ctx, file)
	if err != nil {
		return Report{}, Tree{}, err
	}
	return *v.Report, *v.Tree, nil
}
