// Package handler implements the HTTP API of the editionlinks server.
//
// # Endpoints
//
//   - POST /api/editions/{pid}/reconcile reconciles one edition and returns
//     the service.Result
//   - GET /api/titles?avis_id=&date= lists the titles such an edition would
//     be linked to
//   - GET /healthz
//
// The server also mounts the event stream (/events) and Prometheus metrics
// (/metrics), which live in the hub and metrics packages.
//
// # Response Format
//
// Errors are returned as JSON with {error, details} and a status derived from
// the error kind: incomplete metadata is 422, index and repository failures
// are 502, a published edition that could not be changed is 409. A partially
// applied reconciliation also carries the result.
package handler
