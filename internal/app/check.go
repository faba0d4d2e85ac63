package app

import (
	"context"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// Digest selects file and waits for its checksum. The returned view is in
// StateReady on success; a read failure is returned as the error.
func (w *Workflow) Digest(ctx context.Context, file domain.SelectedFile) (View, error) {
	gen := w.Select(ctx, file)
	return w.settle(ctx, gen)
}

// Check runs one full cycle: select, digest, submit. Superseded cycles
// return domain.ErrSuperseded.
func (w *Workflow) Check(ctx context.Context, file domain.SelectedFile) (View, error) {
	v, err := w.Digest(ctx, file)
	if err != nil {
		return v, err
	}
	if _, err := w.SubmitGeneration(ctx, v.Generation); err != nil {
		return w.Snapshot(), err
	}
	return w.settle(ctx, v.Generation)
}

func (w *Workflow) settle(ctx context.Context, gen uint64) (View, error) {
	v, err := w.AwaitSettled(ctx)
	if err != nil {
		return v, err
	}
	if v.Generation != gen {
		return v, domain.ErrSuperseded
	}
	if v.State == StateFailed {
		return v, v.Diagnostic
	}
	return v, nil
}
