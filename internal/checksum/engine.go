// Package checksum computes content digests of information packages.
//
// The engine reads a package exactly once, in fixed-size chunks, so memory use
// does not grow with the package size. The first chunk doubles as the sniff
// buffer for media type detection.
package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"

	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/ports"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 64 << 10

// sniffLimit is how many leading bytes mimetype inspects.
const sniffLimit = 3072

// Engine implements ports.Digester.
type Engine struct {
	algorithm domain.Algorithm
	chunkSize int
}

// New creates an engine for the given algorithm. A non-positive chunkSize
// selects DefaultChunkSize.
func New(algorithm domain.Algorithm, chunkSize int) (*Engine, error) {
	if _, err := newHash(algorithm); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Engine{algorithm: algorithm, chunkSize: chunkSize}, nil
}

// Algorithm returns the configured algorithm.
func (e *Engine) Algorithm() domain.Algorithm { return e.algorithm }

// Start runs Compute in its own goroutine.
func (e *Engine) Start(ctx context.Context, file domain.SelectedFile) <-chan ports.DigestResult {
	out := make(chan ports.DigestResult, 1)
	go func() {
		defer close(out)
		out <- e.Compute(ctx, file)
	}()
	return out
}

// Compute reads the whole file and returns its digest.
// Context cancellation is observed between chunks.
func (e *Engine) Compute(ctx context.Context, file domain.SelectedFile) ports.DigestResult {
	if !file.Valid() {
		return ports.DigestResult{Err: &domain.ReadError{Name: file.Name, Err: domain.ErrNoSelection}}
	}
	rc, err := file.Open()
	if err != nil {
		return ports.DigestResult{Err: &domain.ReadError{Name: file.Name, Err: err}}
	}
	defer rc.Close()

	h, _ := newHash(e.algorithm)
	buf := make([]byte, e.chunkSize)
	sniff := make([]byte, 0, sniffLimit)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return ports.DigestResult{Err: &domain.ReadError{Name: file.Name, Err: err}}
		}
		n, err := rc.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			h.Write(chunk)
			total += int64(n)
			if room := sniffLimit - len(sniff); room > 0 {
				sniff = append(sniff, chunk[:min(room, n)]...)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ports.DigestResult{Err: &domain.ReadError{Name: file.Name, Err: err}}
		}
	}
	if file.Size > 0 && total != file.Size {
		return ports.DigestResult{Err: &domain.ReadError{
			Name: file.Name,
			Err:  fmt.Errorf("short read: got %d of %d bytes", total, file.Size),
		}}
	}

	return ports.DigestResult{
		Digest: domain.Digest(hex.EncodeToString(h.Sum(nil))),
		Size:   total,
		MIME:   mimetype.Detect(sniff).String(),
	}
}

// Sum digests an in-memory payload with the given algorithm.
func Sum(algorithm domain.Algorithm, data []byte) (domain.Digest, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return domain.Digest(hex.EncodeToString(h.Sum(nil))), nil
}

func newHash(algorithm domain.Algorithm) (hash.Hash, error) {
	switch algorithm {
	case domain.AlgorithmMD5:
		return md5.New(), nil
	case domain.AlgorithmSHA1:
		return sha1.New(), nil
	case domain.AlgorithmSHA256:
		return sha256.New(), nil
	case domain.AlgorithmSHA512:
		return sha512.New(), nil
	case domain.AlgorithmBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
}

var _ ports.Digester = (*Engine)(nil)

// archiveTypes are the package containers the validation service accepts.
var archiveTypes = []string{"application/zip", "application/x-tar", "application/gzip", "application/x-gzip"}

// IsArchive reports whether a sniffed media type is an accepted container.
func IsArchive(mime string) bool {
	return mimetype.EqualsAny(mime, archiveTypes...)
}
