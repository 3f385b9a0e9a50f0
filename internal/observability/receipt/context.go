package receipt

import "context"

type writerKey struct{}

// WithWriter attaches the receipt writer a run should record through.
func WithWriter(ctx context.Context, w Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

// From returns the writer for this run, or nil when receipts are
// disabled. Session.Finish treats nil as a no-op.
func From(ctx context.Context) Writer {
	w, _ := ctx.Value(writerKey{}).(Writer)
	return w
}
