package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/ports"
)

// ValidateEndpoint is the service path accepting package uploads.
const ValidateEndpoint = "/api/validate/"

// Form field names expected by the validation service.
const (
	fieldPackage = "package"
	fieldDigest  = "digest"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// Validator implements ports.ReportValidator using HTTP.
type Validator struct {
	client     ports.HTTPClient
	logger     ports.Logger
	serviceURL string
}

// NewValidator creates a validation client posting to serviceURL + ValidateEndpoint.
func NewValidator(client ports.HTTPClient, logger ports.Logger, serviceURL string) *Validator {
	return &Validator{
		client:     client,
		logger:     logger,
		serviceURL: strings.TrimSuffix(serviceURL, "/"),
	}
}

// URL returns the full endpoint URL.
func (v *Validator) URL() string {
	return v.serviceURL + ValidateEndpoint
}

// Validate streams the package as multipart form data and decodes the report.
func (v *Validator) Validate(ctx context.Context, file domain.SelectedFile, digest domain.Digest, meta ports.SubmitMetadata) (domain.ValidationReport, error) {
	if !file.Valid() {
		return domain.ValidationReport{}, domain.ErrNoSelection
	}

	src, err := file.Open()
	if err != nil {
		return domain.ValidationReport{}, &domain.ReadError{Name: file.Name, Err: err}
	}

	// Stream the body so the package is never held in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	up := &upload{
		pr:   pr,
		src:  &packageReader{r: src, want: meta.Size},
		name: file.Name,
		done: make(chan struct{}),
	}
	go func() {
		defer close(up.done)
		defer src.Close()
		pw.CloseWithError(writeForm(writer, file.Name, digest, meta.MIME, up.src))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL(), pr)
	if err != nil {
		up.stop()
		return domain.ValidationReport{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if meta.RequestID != "" {
		req.Header.Set("X-Request-Id", meta.RequestID)
	}

	v.logger.Debug("submitting package",
		ports.String("url", v.URL()),
		ports.String("file", file.Name),
		ports.DigestField(digest),
	)

	resp, err := v.client.Do(req)
	if err != nil {
		// a failing package read surfaces here through the pipe
		if readErr := up.stop(); readErr != nil {
			return domain.ValidationReport{}, readErr
		}
		return domain.ValidationReport{}, &domain.TransportError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr := up.stop(); readErr != nil {
			return domain.ValidationReport{}, readErr
		}
		v.logger.Warn("validation service rejected submission",
			ports.Int("status", resp.StatusCode),
			ports.String("body", string(respBody)),
		)
		return domain.ValidationReport{}, &domain.TransportError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if readErr := up.stop(); readErr != nil {
		return domain.ValidationReport{}, readErr
	}
	if err != nil {
		return domain.ValidationReport{}, &domain.TransportError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Err:        fmt.Errorf("read response: %w", err),
		}
	}
	return DecodeReport(body)
}

// errUploadStopped unblocks a form writer still streaming after the
// response has been handled.
var errUploadStopped = errors.New("upload stopped")

// upload tracks the goroutine streaming one multipart body.
type upload struct {
	pr   *io.PipeReader
	src  *packageReader
	name string
	done chan struct{}
}

// stop ends the stream, waits for the writer and reports a package read
// failure if there was one.
func (u *upload) stop() error {
	u.pr.CloseWithError(errUploadStopped)
	<-u.done
	return u.src.failure(u.name)
}

// packageReader records read failures and the streamed length of the package.
type packageReader struct {
	r    io.Reader
	want int64 // <= 0: unknown
	n    int64
	eof  bool
	err  error
}

func (p *packageReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.n += int64(n)
	switch {
	case errors.Is(err, io.EOF):
		p.eof = true
	case err != nil:
		p.err = err
	}
	return n, err
}

func (p *packageReader) failure(name string) error {
	if p.err != nil {
		return &domain.ReadError{Name: name, Err: p.err}
	}
	if p.eof && p.want > 0 && p.n != p.want {
		return &domain.ReadError{
			Name: name,
			Err:  fmt.Errorf("package changed since digest: streamed %d of %d bytes", p.n, p.want),
		}
	}
	return nil
}

func writeForm(w *multipart.Writer, name string, digest domain.Digest, mediaType string, src io.Reader) error {
	if err := w.WriteField(fieldDigest, digest.String()); err != nil {
		return fmt.Errorf("write digest field: %w", err)
	}

	var part io.Writer
	var err error
	if mediaType == "" {
		part, err = w.CreateFormFile(fieldPackage, name)
	} else {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldPackage, name))
		h.Set("Content-Type", mediaType)
		part, err = w.CreatePart(h)
	}
	if err != nil {
		return fmt.Errorf("create package field: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("write package data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize multipart: %w", err)
	}
	return nil
}

// statusText strips the numeric prefix from resp.Status ("500 Internal Server Error").
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// wireReport mirrors domain.ValidationReport with pointers so absent
// members can be told apart from zero values.
type wireReport struct {
	Status            *wireStatus     `json:"status"`
	ValidationEntries *[]domain.Entry `json:"validationEntries"`
}

type wireStatus struct {
	Valid *bool             `json:"valid"`
	Date  *domain.Timestamp `json:"date"`
}

// DecodeReport parses a response body. Any shape mismatch yields an error
// matching domain.ErrMalformedReport.
func DecodeReport(body []byte) (domain.ValidationReport, error) {
	var w wireReport
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.ValidationReport{}, &domain.MalformedError{Reason: "decode body", Err: err}
	}
	switch {
	case w.Status == nil:
		return domain.ValidationReport{}, &domain.MalformedError{Reason: "missing status"}
	case w.ValidationEntries == nil:
		return domain.ValidationReport{}, &domain.MalformedError{Reason: "missing validationEntries"}
	case w.Status.Valid == nil:
		return domain.ValidationReport{}, &domain.MalformedError{Reason: "missing status.valid"}
	case w.Status.Date == nil:
		return domain.ValidationReport{}, &domain.MalformedError{Reason: "missing status.date"}
	}

	report := domain.ValidationReport{
		Status:            domain.ReportStatus{Valid: *w.Status.Valid, Date: *w.Status.Date},
		ValidationEntries: make([]domain.Entry, len(*w.ValidationEntries)),
	}
	copy(report.ValidationEntries, *w.ValidationEntries)
	return report, nil
}

var _ ports.ReportValidator = (*Validator)(nil)
