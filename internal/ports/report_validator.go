package ports

import (
	"context"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// SubmitMetadata provides context for one submission.
type SubmitMetadata struct {
	// RequestID identifies the submission in service logs
	RequestID string

	// MIME is the sniffed media type of the package, empty if unknown
	MIME string

	// Size is the length that was digested. When positive, an upload that
	// streams a different number of bytes fails with a read error.
	Size int64
}

// ReportValidator submits packages to the validation service.
// Implementations issue exactly one request per call and never retry.
type ReportValidator interface {
	// Validate uploads the file with its digest and returns the parsed report.
	// Errors match domain.ErrRead, domain.ErrTransport or domain.ErrMalformedReport.
	Validate(ctx context.Context, file domain.SelectedFile, digest domain.Digest, meta SubmitMetadata) (domain.ValidationReport, error)
}
