package attributes

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx carrying attrs.
func NewContext(ctx context.Context, attrs *RequestAttributes) context.Context {
	return context.WithValue(ctx, contextKey{}, attrs)
}

// FromContext returns the accessor stored in ctx, if any.
func FromContext(ctx context.Context) (*RequestAttributes, bool) {
	attrs, ok := ctx.Value(contextKey{}).(*RequestAttributes)
	return attrs, ok && attrs != nil
}
