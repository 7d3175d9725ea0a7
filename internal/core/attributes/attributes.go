package attributes

import (
	"reflect"

	"github.com/yndnr/attrmesh/internal/container"
	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
)

// RequestAttributes mediates attribute access for one container request.
//
// It is not safe for concurrent use; one instance belongs to one request.
type RequestAttributes struct {
	request container.Request
	session container.Session

	completed bool

	// pending holds global session writes made after completion while no
	// session was available, in the order they were made.
	pending []pendingWrite

	// accessed remembers session values handed out by Attribute so they can
	// be written back on completion.
	accessed map[accessKey]any

	callbacks []requestCallback

	logger  logger.Logger
	metrics *metric.Registry
}

type pendingWrite struct {
	name  string
	value any
}

type accessKey struct {
	name      string
	partition domain.Partition
}

type requestCallback struct {
	name string
	fn   func()
}

// Option configures RequestAttributes.
type Option func(*RequestAttributes)

// WithLogger sets the logger used for deferred-write events.
func WithLogger(l logger.Logger) Option {
	return func(a *RequestAttributes) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(a *RequestAttributes) {
		a.metrics = m
	}
}

// New creates an accessor over req. A nil req fails with domain.ErrInvalidArgument.
func New(req container.Request, opts ...Option) (*RequestAttributes, error) {
	if req == nil || (reflect.ValueOf(req).Kind() == reflect.Pointer && reflect.ValueOf(req).IsNil()) {
		return nil, domain.ErrInvalidArgument.WithDetails("request must not be nil")
	}

	a := &RequestAttributes{
		request:  req,
		accessed: make(map[accessKey]any),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Request returns the wrapped container request.
func (a *RequestAttributes) Request() container.Request {
	return a.request
}

// Completed reports whether RequestCompleted was called.
func (a *RequestAttributes) Completed() bool {
	return a.completed
}

// Attribute returns the value stored under name in scope.
// Session scopes never create a session; without one the attribute is absent.
func (a *RequestAttributes) Attribute(name string, scope domain.Scope) (any, bool) {
	a.metrics.AttributeOp("get", scope.String())

	if scope == domain.ScopeRequest {
		return a.request.Attribute(name)
	}
	if !scope.IsSession() {
		return nil, false
	}

	s, err := a.getSession(false)
	if err != nil || s == nil {
		return nil, false
	}

	p := scope.Partition()
	value, ok := s.Attribute(name, p)
	if ok {
		a.accessed[accessKey{name: name, partition: p}] = value
	}
	return value, ok
}

// SetAttribute stores value under name in scope.
//
// Request scope fails with domain.ErrRequestCompleted once completed. A
// global session write after completion with no session available is
// deferred until a session can be obtained.
func (a *RequestAttributes) SetAttribute(name string, value any, scope domain.Scope) error {
	a.metrics.AttributeOp("set", scope.String())

	switch scope {
	case domain.ScopeRequest:
		if a.completed {
			return domain.ErrRequestCompleted.WithDetails("cannot set request attribute " + name)
		}
		return a.request.SetAttribute(name, value)

	case domain.ScopeSession:
		s, err := a.getSession(true)
		if err != nil {
			return err
		}
		a.forgetAccess(name, domain.PartitionPortlet)
		return s.SetAttribute(name, value, domain.PartitionPortlet)

	case domain.ScopeGlobalSession:
		s, err := a.getSession(!a.completed)
		if err != nil {
			return err
		}
		if s == nil {
			a.deferWrite(name, value)
			return nil
		}
		a.dropPending(name)
		a.forgetAccess(name, domain.PartitionApplication)
		return s.SetAttribute(name, value, domain.PartitionApplication)

	default:
		return domain.ErrInvalidArgument.WithDetails("unknown scope")
	}
}

// RemoveAttribute deletes name from scope. Session scopes never create a
// session; without one the call does nothing.
func (a *RequestAttributes) RemoveAttribute(name string, scope domain.Scope) {
	a.metrics.AttributeOp("remove", scope.String())

	if scope == domain.ScopeRequest {
		a.request.RemoveAttribute(name)
		a.removeRequestCallback(name)
		return
	}
	if !scope.IsSession() {
		return
	}

	p := scope.Partition()
	if p == domain.PartitionApplication {
		a.dropPending(name)
	}

	s, err := a.getSession(false)
	if err != nil || s == nil {
		return
	}
	a.forgetAccess(name, p)
	s.RemoveAttribute(name, p)
}

// AttributeNames returns the sorted names in scope. Session scopes never
// create a session.
func (a *RequestAttributes) AttributeNames(scope domain.Scope) []string {
	if scope == domain.ScopeRequest {
		return a.request.AttributeNames()
	}
	if !scope.IsSession() {
		return nil
	}

	s, err := a.getSession(false)
	if err != nil || s == nil {
		return nil
	}
	return s.AttributeNames(scope.Partition())
}

// RegisterDestructionCallback arranges for fn to run when the scope ends.
// Request callbacks run on RequestCompleted; session callbacks run when the
// attribute is removed or the session is invalidated.
func (a *RequestAttributes) RegisterDestructionCallback(name string, fn func(), scope domain.Scope) error {
	if fn == nil {
		return domain.ErrMissingArgument.WithDetails("callback must not be nil")
	}

	switch scope {
	case domain.ScopeRequest:
		if a.completed {
			return domain.ErrRequestCompleted.WithDetails("cannot register request callback " + name)
		}
		a.removeRequestCallback(name)
		a.callbacks = append(a.callbacks, requestCallback{name: name, fn: fn})
		return nil

	case domain.ScopeSession, domain.ScopeGlobalSession:
		s, err := a.getSession(true)
		if err != nil {
			return err
		}
		s.RegisterDestructionCallback(name, scope.Partition(), fn)
		return nil

	default:
		return domain.ErrInvalidArgument.WithDetails("unknown scope")
	}
}

// SessionID returns the ID of the session, creating it if necessary.
func (a *RequestAttributes) SessionID() (string, error) {
	s, err := a.getSession(true)
	if err != nil {
		return "", err
	}
	return s.ID(), nil
}

// Session returns the session bound so far without looking it up.
func (a *RequestAttributes) Session() container.Session {
	return a.session
}

// PendingWrites returns the names of deferred global writes.
func (a *RequestAttributes) PendingWrites() []string {
	names := make([]string, len(a.pending))
	for i, w := range a.pending {
		names[i] = w.name
	}
	return names
}

// RequestCompleted runs request destruction callbacks, writes back accessed
// session attributes and marks the accessor completed. Deferred writes are
// not flushed here. Subsequent calls do nothing.
func (a *RequestAttributes) RequestCompleted() {
	if a.completed {
		return
	}

	callbacks := a.callbacks
	a.callbacks = nil
	for _, cb := range callbacks {
		cb.fn()
	}

	a.updateAccessedSessionAttributes()
	a.completed = true
}

// getSession returns the session for this request.
//
// While the request is active the container is always asked, with create
// passed through. After completion the bound session is reused; otherwise
// the container is asked without creation and create requests fail.
// Every successful acquisition flushes pending writes.
func (a *RequestAttributes) getSession(create bool) (container.Session, error) {
	if a.session != nil && !a.session.Valid() {
		a.session = nil
	}

	var s container.Session
	switch {
	case !a.completed:
		found, err := a.request.Session(create)
		if err != nil {
			return nil, err
		}
		s = found
	case a.session != nil:
		s = a.session
	default:
		found, err := a.request.Session(false)
		if err != nil {
			return nil, err
		}
		if found == nil && create {
			return nil, domain.ErrRequestCompleted.WithDetails("no session available and request already completed")
		}
		s = found
	}

	if s == nil {
		return nil, nil
	}
	a.session = s
	a.flushPending(s)
	return s, nil
}

func (a *RequestAttributes) deferWrite(name string, value any) {
	a.dropPending(name)
	a.pending = append(a.pending, pendingWrite{name: name, value: value})
	a.metrics.DeferredWrite()
	a.logger.Debug("deferred global session attribute write", "name", name)
}

func (a *RequestAttributes) dropPending(name string) {
	for i, w := range a.pending {
		if w.name == name {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}

func (a *RequestAttributes) flushPending(s container.Session) {
	if len(a.pending) == 0 {
		return
	}

	pending := a.pending
	a.pending = nil

	flushed := 0
	for i, w := range pending {
		if err := s.SetAttribute(w.name, w.value, domain.PartitionApplication); err != nil {
			// Keep what could not be applied for the next acquisition.
			a.pending = append(a.pending, pending[i:]...)
			a.logger.Debug("deferred write flush interrupted", "name", w.name, "error", err)
			break
		}
		a.forgetAccess(w.name, domain.PartitionApplication)
		flushed++
	}

	if flushed == 0 {
		return
	}
	a.metrics.DeferredFlush(flushed)
	a.logger.Debug("flushed deferred global session attributes", "count", flushed, "session_id", s.ID())
}

func (a *RequestAttributes) forgetAccess(name string, p domain.Partition) {
	delete(a.accessed, accessKey{name: name, partition: p})
}

func (a *RequestAttributes) removeRequestCallback(name string) {
	for i, cb := range a.callbacks {
		if cb.name == name {
			a.callbacks = append(a.callbacks[:i], a.callbacks[i+1:]...)
			return
		}
	}
}

// updateAccessedSessionAttributes re-stores mutable values that were read
// during the request and are still the current session value, so that
// persisting containers observe in-place changes.
func (a *RequestAttributes) updateAccessedSessionAttributes() {
	defer clear(a.accessed)

	s := a.session
	if s == nil || !s.Valid() {
		return
	}

	for key, value := range a.accessed {
		current, ok := s.Attribute(key.name, key.partition)
		if !ok || !sameValue(current, value) || isImmutable(value) {
			continue
		}
		_ = s.SetAttribute(key.name, value, key.partition)
	}
}

// sameValue reports whether a and b are the identical stored value. Values of
// uncomparable types are compared by reference.
func sameValue(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		return a == b
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}

func isImmutable(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}
