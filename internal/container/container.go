package container

import "github.com/yndnr/attrmesh/internal/core/domain"

// Session is a container-managed session partitioned into a portlet and an
// application namespace. *domain.Session implements it.
type Session interface {
	ID() string
	Attribute(name string, p domain.Partition) (any, bool)
	SetAttribute(name string, value any, p domain.Partition) error
	RemoveAttribute(name string, p domain.Partition)
	AttributeNames(p domain.Partition) []string
	RegisterDestructionCallback(name string, p domain.Partition, fn func())
	Invalidate()
	Valid() bool
}

// Request is the container's handle on a single request.
type Request interface {
	// Attribute returns a request-scoped value.
	Attribute(name string) (any, bool)

	// SetAttribute stores a request-scoped value. It fails with
	// domain.ErrRequestClosed once the container closed the request.
	SetAttribute(name string, value any) error

	// RemoveAttribute deletes a request-scoped value.
	RemoveAttribute(name string)

	// AttributeNames returns the sorted request-scoped names.
	AttributeNames() []string

	// Session returns the session bound to the request. With create=false a
	// missing session yields (nil, nil) and nothing is created.
	Session(create bool) (Session, error)
}

var _ Session = (*domain.Session)(nil)
