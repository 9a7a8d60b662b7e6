// Package repository defines the document repository capabilities used to
// maintain edition to title relations.
//
// # Capabilities
//
// DocumentReader, RelationReader, RelationWriter and StateWriter are small
// interfaces so callers and tests can depend on exactly what they use.
// Repository combines them.
//
// # Implementations
//
// The fedora subpackage talks to a Fedora 3 REST API. The sqlite subpackage
// is a local store with the same behaviour, including the refusal to change
// relations on published records, and also serves title searches.
//
// # Identifiers
//
// Methods take bare PIDs for the record being addressed and URIs
// (domain.ToURI) for relation subjects and objects.
package repository
