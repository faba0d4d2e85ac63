package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	logAdapter "github.com/bft-labs/ipcheck/internal/adapters/log"
	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/ports"
)

func memFile(name string, data []byte) domain.SelectedFile {
	return domain.SelectedFile{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

const okReport = `{"status":{"valid":true,"date":1700000000000},"validationEntries":[{"level":"ERROR","message":"m","description":"d"}]}`

func TestValidateSendsMultipartForm(t *testing.T) {
	payload := []byte("PK\x03\x04 package bytes")
	var gotDigest, gotName, gotRequestID string
	var gotPayload []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ValidateEndpoint {
			t.Errorf("request = %s %s, want POST %s", r.Method, r.URL.Path, ValidateEndpoint)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotDigest = r.FormValue("digest")
		gotRequestID = r.Header.Get("X-Request-Id")
		f, hdr, err := r.FormFile("package")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		gotPayload, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, okReport)
	}))
	defer srv.Close()

	v := NewValidator(srv.Client(), logAdapter.NewNoopLogger(), srv.URL+"/")
	report, err := v.Validate(context.Background(), memFile("ip.zip", payload), "abc123", ports.SubmitMetadata{RequestID: "wf-1", MIME: "application/zip"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if gotDigest != "abc123" {
		t.Errorf("digest field = %q, want abc123", gotDigest)
	}
	if gotName != "ip.zip" {
		t.Errorf("filename = %q, want ip.zip", gotName)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("package field = %q, want %q", gotPayload, payload)
	}
	if gotRequestID != "wf-1" {
		t.Errorf("X-Request-Id = %q, want wf-1", gotRequestID)
	}
	if !report.Status.Valid || len(report.ValidationEntries) != 1 {
		t.Errorf("report = %+v", report)
	}
	if e := report.ValidationEntries[0]; e.Level != domain.LevelError || e.Message != "m" || e.Description != "d" {
		t.Errorf("entry = %+v", e)
	}
}

func TestValidateNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewValidator(srv.Client(), logAdapter.NewNoopLogger(), srv.URL)
	_, err := v.Validate(context.Background(), memFile("ip.zip", []byte("x")), "d", ports.SubmitMetadata{})

	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Validate() error = %v, want TransportError", err)
	}
	if te.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", te.StatusCode)
	}
	if te.StatusText != "Internal Server Error" {
		t.Errorf("StatusText = %q, want Internal Server Error", te.StatusText)
	}
	if !domain.Retryable(err) {
		t.Error("HTTP failure should be retryable")
	}
}

func TestValidateMalformedBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing status", `{"validationEntries":[]}`},
		{"missing entries", `{"status":{"valid":true,"date":0}}`},
		{"null entries", `{"status":{"valid":true,"date":0},"validationEntries":null}`},
		{"missing valid", `{"status":{"date":0},"validationEntries":[]}`},
		{"missing date", `{"status":{"valid":false},"validationEntries":[]}`},
		{"bad date", `{"status":{"valid":false,"date":"soon"},"validationEntries":[]}`},
		{"date out of range", `{"status":{"valid":false,"date":1e300},"validationEntries":[]}`},
		{"entries not an array", `{"status":{"valid":true,"date":0},"validationEntries":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			v := NewValidator(srv.Client(), logAdapter.NewNoopLogger(), srv.URL)
			_, err := v.Validate(context.Background(), memFile("ip.zip", []byte("x")), "d", ports.SubmitMetadata{})
			if !errors.Is(err, domain.ErrMalformedReport) {
				t.Fatalf("Validate() error = %v, want ErrMalformedReport", err)
			}
			if domain.Retryable(err) {
				t.Error("malformed report should not be retryable")
			}
		})
	}
}

func TestDecodeReportEmptyEntries(t *testing.T) {
	r, err := DecodeReport([]byte(`{"status":{"valid":true,"date":"2024-01-02T03:04:05Z"},"validationEntries":[]}`))
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	if !r.Status.Valid || len(r.ValidationEntries) != 0 {
		t.Errorf("report = %+v", r)
	}
}

type failingClient struct{}

func (failingClient) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		req.Body.Close()
	}
	return nil, errors.New("connection refused")
}

func TestValidateNetworkError(t *testing.T) {
	v := NewValidator(failingClient{}, logAdapter.NewNoopLogger(), "http://validator.invalid")
	_, err := v.Validate(context.Background(), memFile("ip.zip", []byte("x")), "d", ports.SubmitMetadata{})

	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Validate() error = %v, want TransportError", err)
	}
	if te.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 without a response", te.StatusCode)
	}
}

func TestValidateOpenFailure(t *testing.T) {
	file := domain.SelectedFile{
		Name: "gone.zip",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("removed") },
	}
	v := NewValidator(failingClient{}, logAdapter.NewNoopLogger(), "http://validator.invalid")
	if _, err := v.Validate(context.Background(), file, "d", ports.SubmitMetadata{}); !errors.Is(err, domain.ErrRead) {
		t.Errorf("Validate() error = %v, want ErrRead", err)
	}
}

type brokenReader struct{ left int }

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.left <= 0 {
		return 0, errors.New("disk gone")
	}
	n := min(len(p), b.left)
	for i := range p[:n] {
		p[i] = 'x'
	}
	b.left -= n
	return n, nil
}

func TestValidateStreamReadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			http.Error(w, "truncated upload", http.StatusBadRequest)
			return
		}
		io.WriteString(w, okReport)
	}))
	defer srv.Close()

	file := domain.SelectedFile{
		Name: "ip.zip",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(&brokenReader{left: 3}), nil },
	}
	v := NewValidator(srv.Client(), logAdapter.NewNoopLogger(), srv.URL)
	_, err := v.Validate(context.Background(), file, "d", ports.SubmitMetadata{})

	if !errors.Is(err, domain.ErrRead) {
		t.Fatalf("Validate() error = %v, want ErrRead", err)
	}
	if errors.Is(err, domain.ErrTransport) || domain.Retryable(err) {
		t.Errorf("read failure during upload must not be retryable: %v", err)
	}
}

func TestValidatePackageChangedSinceDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, okReport)
	}))
	defer srv.Close()

	v := NewValidator(srv.Client(), logAdapter.NewNoopLogger(), srv.URL)
	// digested 10 bytes, the file now holds 5
	_, err := v.Validate(context.Background(), memFile("ip.zip", []byte("12345")), "d", ports.SubmitMetadata{Size: 10})
	if !errors.Is(err, domain.ErrRead) {
		t.Fatalf("Validate() error = %v, want ErrRead", err)
	}

	if _, err := v.Validate(context.Background(), memFile("ip.zip", []byte("12345")), "d", ports.SubmitMetadata{Size: 5}); err != nil {
		t.Errorf("Validate() with matching size error = %v", err)
	}
}

func TestURL(t *testing.T) {
	v := NewValidator(nil, logAdapter.NewNoopLogger(), "http://localhost:5000/")
	if got, want := v.URL(), "http://localhost:5000/api/validate/"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
