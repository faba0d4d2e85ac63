package fs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/ports"
)

// ReportFile is the exported form of a received report.
type ReportFile struct {
	Digest     domain.Digest           `json:"digest"`
	ReceivedAt time.Time               `json:"receivedAt"`
	Report     domain.ValidationReport `json:"report"`
}

// ReportFileStore implements ports.ReportStore using a JSON file.
type ReportFileStore struct {
	path string
	now  func() time.Time
}

// NewReportFileStore creates a store writing to path.
func NewReportFileStore(path string) *ReportFileStore {
	return &ReportFileStore{path: path, now: time.Now}
}

// Save writes the report atomically (write to temp file, then rename).
func (r *ReportFileStore) Save(ctx context.Context, digest domain.Digest, report domain.ValidationReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(ReportFile{
		Digest:     digest,
		ReceivedAt: r.now().UTC(),
		Report:     report,
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Load reads the last saved report.
func (r *ReportFileStore) Load() (ReportFile, error) {
	var rf ReportFile
	data, err := os.ReadFile(r.path)
	if err != nil {
		return rf, err
	}
	err = json.Unmarshal(data, &rf)
	return rf, err
}

// Path returns the full path to the report file.
func (r *ReportFileStore) Path() string {
	return r.path
}

var _ ports.ReportStore = (*ReportFileStore)(nil)
