package pricing

import "context"

// Recorder observes quotes after they are served. Implementations
// must not fail the request: errors stay inside the recorder, and the
// engine contains panics.
type Recorder interface {
	Record(ctx context.Context, quote Quote)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, quote Quote)

func (f RecorderFunc) Record(ctx context.Context, quote Quote) { f(ctx, quote) }
