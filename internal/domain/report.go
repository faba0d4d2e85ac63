package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Level is the severity of a report entry.
// Values other than the known constants are preserved as received.
type Level string

const (
	LevelError   Level = "ERROR"
	LevelWarning Level = "WARNING"
	LevelInfo    Level = "INFO"
)

// Entry is one finding in a validation report.
type Entry struct {
	Level       Level  `json:"level"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// ReportStatus is the overall verdict of a validation run.
type ReportStatus struct {
	Valid bool      `json:"valid"`
	Date  Timestamp `json:"date"`
}

// ValidationReport is the structured result returned by the validation service.
// Entry order is display order.
type ValidationReport struct {
	Status            ReportStatus `json:"status"`
	ValidationEntries []Entry      `json:"validationEntries"`
}

// Counts returns the number of entries per level.
func (r ValidationReport) Counts() map[Level]int {
	counts := make(map[Level]int, 3)
	for _, e := range r.ValidationEntries {
		counts[e.Level]++
	}
	return counts
}

// Timestamp is a report date. On the wire it is either milliseconds since
// the Unix epoch or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// NewTimestampMillis builds a Timestamp from epoch milliseconds.
func NewTimestampMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms).UTC()}
}

// UnmarshalJSON accepts a number (epoch millis) or an RFC 3339 string.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("timestamp: missing value")
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("timestamp: not a number or string: %s", b)
	}
	// float64(math.MaxInt64) rounds up to 2^63, so >= rejects it
	if ms >= math.MaxInt64 || ms < math.MinInt64 {
		return fmt.Errorf("timestamp: %s out of range", b)
	}
	*t = NewTimestampMillis(int64(ms))
	return nil
}

// MarshalJSON encodes the timestamp as epoch milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}
