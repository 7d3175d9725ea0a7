// Package metric provides Prometheus metrics for attrmesh.
//
// A Registry owns a private prometheus.Registry so tests and embedders never
// collide on the global default registerer. Every recording method is safe
// to call on a nil *Registry, which lets components treat metrics as optional.
//
// Exposed families:
//
//   - attrmesh_attribute_operations_total{op,scope}
//   - attrmesh_deferred_writes_total, attrmesh_deferred_flushes_total
//   - attrmesh_sessions_active, attrmesh_sessions_created_total,
//     attrmesh_sessions_expired_total, attrmesh_sessions_invalidated_total
//   - attrmesh_http_requests_total{method,code},
//     attrmesh_http_request_duration_seconds{method}
package metric
