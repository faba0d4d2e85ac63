package domain

import (
	"fmt"
	"io"
	"strings"
)

// SelectedFile is the information package chosen for validation.
// The payload is opaque: it is only ever read through Open.
type SelectedFile struct {
	// Name is the display name (base file name, no directory)
	Name string

	// Size is the payload length in bytes. Zero or negative means unknown
	// and disables the length check on read.
	Size int64

	// Open returns a fresh reader positioned at the first byte.
	Open func() (io.ReadCloser, error)
}

// Valid reports whether the file can be read.
func (f SelectedFile) Valid() bool {
	return f.Open != nil
}

// Digest is the lowercase hex checksum of a package's bytes.
type Digest string

// String returns the digest value.
func (d Digest) String() string { return string(d) }

// Empty returns true if no digest has been computed.
func (d Digest) Empty() bool { return d == "" }

// Algorithm names a digest algorithm.
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// DefaultAlgorithm is SHA-1, the checksum the validation service keys uploads by.
const DefaultAlgorithm = AlgorithmSHA1

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{AlgorithmMD5, AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512, AlgorithmBLAKE3}

// ParseAlgorithm accepts names case-insensitively, with or without a dash
// ("SHA-256", "sha256").
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	for _, a := range Algorithms {
		if string(a) == norm {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown digest algorithm %q", s)
}
