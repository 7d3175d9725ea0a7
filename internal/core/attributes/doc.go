// Package attributes provides the per-request attribute accessor.
//
// RequestAttributes wraps a container.Request and translates three scopes
// onto container storage:
//
//   - domain.ScopeRequest: the request's own attribute map
//   - domain.ScopeSession: the session's portlet partition
//   - domain.ScopeGlobalSession: the session's application partition
//
// Reads and removals never create a session. Writes may, except after the
// request completed: a global write that finds no session is then held in a
// pending slot and applied the next time a session is obtained.
//
// A typical container drives it like this:
//
//	attrs, err := attributes.New(req)
//	ctx = attributes.NewContext(ctx, attrs)
//	handler(ctx)
//	attrs.RequestCompleted()
package attributes
