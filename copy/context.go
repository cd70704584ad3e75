package copy

import "context"

// checkCancel is the single cooperative-cancellation poll point used
// throughout the handlers (spec.md §5): called at every pair boundary and
// inside long loops. ctx may be nil (treated as never canceled); cb may be
// nil (the legacy per-call cancellation callback, treated as never firing).
func checkCancel(ctx context.Context, cb func() error) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if cb != nil {
		if err := cb(); err != nil {
			return err
		}
	}
	return nil
}
