package ports

import (
	"context"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// ReportStore exports received reports.
type ReportStore interface {
	// Save persists the report atomically (write to temp file, then rename).
	Save(ctx context.Context, digest domain.Digest, report domain.ValidationReport) error
}
