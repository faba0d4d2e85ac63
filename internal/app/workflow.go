package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/ports"
	"github.com/bft-labs/ipcheck/internal/render"
)

// PendingDigestText is shown in place of the digest while it is computed.
const PendingDigestText = "Calculating package checksum..."

// View is an immutable snapshot of a workflow.
type View struct {
	ID            string
	State         State
	Generation    uint64
	SubmitEnabled bool
	File          string
	Size          int64
	Digest        domain.Digest
	MIME          string
	Diagnostic    error
	Report        *domain.ValidationReport
	Tree          *render.Tree
}

// DigestText returns the digest, or the pending message while it is computed.
func (v View) DigestText() string {
	if v.State == StateAwaitingDigest {
		return PendingDigestText
	}
	return v.Digest.String()
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithEmitter registers an observer for state transitions.
func WithEmitter(e EventEmitter) Option {
	return func(w *Workflow) { w.emitter = e }
}

// WithReportStore exports every accepted report.
func WithReportStore(s ports.ReportStore) Option {
	return func(w *Workflow) { w.store = s }
}

// Workflow owns one package selection at a time and gates submission on
// digest completion. All fields below mu are written only by Select, Submit
// and the two completion handlers.
type Workflow struct {
	id        string
	digester  ports.Digester
	validator ports.ReportValidator
	store     ports.ReportStore
	logger    ports.Logger
	emitter   EventEmitter

	mu          sync.Mutex
	state       State
	generation  uint64
	file        domain.SelectedFile
	digest      ports.DigestResult
	held        bool // digest ready but a superseded submission is still outstanding
	inFlight    bool
	retryable   bool
	diagnostic  error
	report      *domain.ValidationReport
	tree        *render.Tree
	submissions int
	changed     chan struct{}
}

// NewWorkflow creates a workflow in StateIdle.
func NewWorkflow(digester ports.Digester, validator ports.ReportValidator, logger ports.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		id:        uuid.NewString(),
		digester:  digester,
		validator: validator,
		logger:    logger,
		state:     StateIdle,
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the workflow instance id.
func (w *Workflow) ID() string { return w.id }

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SubmitEnabled reports whether Submit would be accepted now.
func (w *Workflow) SubmitEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitEnabledLocked()
}

func (w *Workflow) submitEnabledLocked() bool {
	if w.inFlight {
		return false
	}
	return w.state == StateReady || (w.state == StateFailed && w.retryable)
}

// Snapshot returns the current view.
func (w *Workflow) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

func (w *Workflow) viewLocked() View {
	v := View{
		ID:            w.id,
		State:         w.state,
		Generation:    w.generation,
		SubmitEnabled: w.submitEnabledLocked(),
		File:          w.file.Name,
		Size:          w.digest.Size,
		Digest:        w.digest.Digest,
		MIME:          w.digest.MIME,
		Diagnostic:    w.diagnostic,
		Report:        w.report,
		Tree:          w.tree,
	}
	if w.held {
		// not displayed until the workflow is Ready
		v.Digest, v.MIME, v.Size = "", "", 0
	}
	return v
}

// Select replaces the current package and starts computing its digest.
// It is accepted in every state. Results still outstanding for an earlier
// selection are discarded when they arrive. Returns the new generation.
func (w *Workflow) Select(ctx context.Context, file domain.SelectedFile) uint64 {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	w.file = file
	w.digest = ports.DigestResult{}
	w.held = false
	w.retryable = false
	w.diagnostic = nil
	w.report = nil
	w.tree = nil
	prev := w.setStateLocked(StateAwaitingDigest)
	w.mu.Unlock()

	w.transitioned(prev, StateAwaitingDigest, gen, "package selected: "+file.Name)

	results := w.digester.Start(ctx, file)
	go func() {
		res, ok := <-results
		if !ok {
			res = ports.DigestResult{Err: &domain.ReadError{Name: file.Name, Err: fmt.Errorf("digest channel closed without result")}}
		}
		w.onDigest(gen, res)
	}()
	return gen
}

func (w *Workflow) onDigest(gen uint64, res ports.DigestResult) {
	w.mu.Lock()
	if gen != w.generation {
		current := w.generation
		w.mu.Unlock()
		w.logger.Debug("discarding stale digest",
			ports.Workflow(w.id),
			ports.Generation(gen),
			ports.Uint64("current", current),
		)
		return
	}

	if res.Err != nil {
		w.diagnostic = res.Err
		w.retryable = false
		prev := w.setStateLocked(StateFailed)
		w.mu.Unlock()
		w.logger.Error("digest failed", ports.Workflow(w.id), ports.Err(res.Err))
		w.transitioned(prev, StateFailed, gen, "digest failed")
		return
	}

	w.digest = res
	if w.inFlight {
		w.held = true
		w.mu.Unlock()
		w.logger.Debug("digest held until outstanding submission settles",
			ports.Workflow(w.id),
			ports.Generation(gen),
		)
		return
	}
	name := w.file.Name
	prev := w.setStateLocked(StateReady)
	w.mu.Unlock()

	w.logger.Info("digest computed",
		ports.Workflow(w.id),
		ports.String("file", name),
		ports.DigestField(res.Digest),
		ports.Int64("bytes", res.Size),
		ports.String("mime", res.MIME),
	)
	w.transitioned(prev, StateReady, gen, "digest computed")
}

// Submit posts the current package to the validation service and blocks
// until the response arrives. It is accepted only when SubmitEnabled is true;
// otherwise it returns domain.ErrSubmitDisabled without issuing a request.
// If the package is re-selected while the request is outstanding the result
// is discarded and domain.ErrSuperseded is returned.
func (w *Workflow) Submit(ctx context.Context) (render.Tree, error) {
	return w.submit(ctx, 0)
}

// SubmitGeneration is Submit for a specific selection: it returns
// domain.ErrSuperseded without issuing a request when gen is no longer current.
func (w *Workflow) SubmitGeneration(ctx context.Context, gen uint64) (render.Tree, error) {
	if gen == 0 {
		return render.Tree{}, domain.ErrNoSelection
	}
	return w.submit(ctx, gen)
}

func (w *Workflow) submit(ctx context.Context, want uint64) (render.Tree, error) {
	w.mu.Lock()
	if want != 0 && want != w.generation {
		w.mu.Unlock()
		return render.Tree{}, domain.ErrSuperseded
	}
	if !w.submitEnabledLocked() {
		st := w.state
		w.mu.Unlock()
		return render.Tree{}, fmt.Errorf("%w (state %s)", domain.ErrSubmitDisabled, st)
	}
	gen := w.generation
	file, digest := w.file, w.digest
	w.inFlight = true
	w.submissions++
	meta := ports.SubmitMetadata{
		RequestID: fmt.Sprintf("%s-%d", w.id, w.submissions),
		MIME:      digest.MIME,
		Size:      digest.Size,
	}
	w.diagnostic = nil
	w.retryable = false
	prev := w.setStateLocked(StateSubmitting)
	w.mu.Unlock()

	w.transitioned(prev, StateSubmitting, gen, "submitted")

	report, err := w.validator.Validate(ctx, file, digest.Digest, meta)

	w.mu.Lock()
	w.inFlight = false
	if gen != w.generation {
		released := w.held
		w.held = false
		var prevState State
		if released {
			prevState = w.setStateLocked(StateReady)
		}
		current := w.generation
		w.mu.Unlock()

		w.logger.Debug("discarding stale submission result",
			ports.Workflow(w.id),
			ports.Generation(gen),
			ports.Uint64("current", current),
		)
		if released {
			w.transitioned(prevState, StateReady, current, "digest released")
		}
		return render.Tree{}, domain.ErrSuperseded
	}

	if err != nil {
		w.diagnostic = err
		w.retryable = domain.Retryable(err)
		prev := w.setStateLocked(StateFailed)
		w.mu.Unlock()

		w.logger.Error("submission failed",
			ports.Workflow(w.id),
			ports.String("request", meta.RequestID),
			ports.Bool("retryable", domain.Retryable(err)),
			ports.Err(err),
		)
		w.transitioned(prev, StateFailed, gen, "submission failed")
		return render.Tree{}, err
	}

	tree := render.Render(report)
	w.report = &report
	w.tree = &tree
	prev = w.setStateLocked(StateReported)
	w.mu.Unlock()

	w.logger.Info("report received",
		ports.Workflow(w.id),
		ports.String("request", meta.RequestID),
		ports.Bool("valid", report.Status.Valid),
		ports.Int("entries", len(report.ValidationEntries)),
	)
	w.transitioned(prev, StateReported, gen, "report received")

	if w.store != nil {
		if err := w.store.Save(ctx, digest.Digest, report); err != nil {
			w.logger.Error("failed to save report", ports.Err(err))
		}
	}
	return tree, nil
}

// AwaitSettled blocks until no asynchronous step is outstanding for the
// current selection, then returns the view.
func (w *Workflow) AwaitSettled(ctx context.Context) (View, error) {
	for {
		w.mu.Lock()
		v := w.viewLocked()
		settled := !w.state.Pending()
		ch := w.changed
		w.mu.Unlock()

		if settled {
			return v, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
}

// setStateLocked changes state and wakes AwaitSettled callers.
func (w *Workflow) setStateLocked(s State) State {
	prev := w.state
	w.state = s
	close(w.changed)
	w.changed = make(chan struct{})
	return prev
}

// transitioned logs and emits outside of the lock.
func (w *Workflow) transitioned(prev, cur State, gen uint64, reason string) {
	if w.emitter != nil {
		w.emitter.OnStateChange(prev, cur, reason)
	}
	w.logger.Debug("state transition",
		ports.Workflow(w.id),
		ports.Generation(gen),
		ports.String("from", prev.String()),
		ports.String("to", cur.String()),
		ports.String("reason", reason),
	)
}
