// Package domain defines the core types for maintaining edition to newspaper
// title relations.
//
// # Core Types
//
// Item identifies a repository record (an edition or a title) by its PID.
// Items are comparable values: sets of Items built independently by the
// search index and the repository compare correctly.
//
// ItemSet is a membership set with set difference, used to compute which
// relations to add and which to remove.
//
// Relation is a directed edge as stored by the repository, with URI subject
// and object. ToURI and FromURI convert between bare PIDs and URIs.
//
// # Errors
//
// MetadataMissingError, IndexQueryError and TransportError wrap their cause.
// ErrPublished is the only repository rejection a caller may recover from, by
// unpublishing the record, retrying, and republishing.
package domain
