package ports

import (
	"context"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// DigestResult is the outcome of one checksum computation.
type DigestResult struct {
	// Digest is the hex checksum of the whole payload
	Digest domain.Digest

	// Size is the number of bytes read
	Size int64

	// MIME is the sniffed media type of the payload (e.g., "application/zip")
	MIME string

	// Err is set when the payload could not be fully read; the other fields are then zero.
	Err error
}

// Digester computes package checksums.
type Digester interface {
	// Start begins an asynchronous computation over the whole file.
	// The returned channel receives exactly one result and is then closed.
	Start(ctx context.Context, file domain.SelectedFile) <-chan DigestResult
}
