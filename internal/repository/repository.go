package repository

import (
	"context"

	"editionlinks/internal/domain"
)

// DocumentReader reads datastream content of a record
type DocumentReader interface {
	GetDocument(ctx context.Context, pid, datastream string) ([]byte, error)
}

// RelationReader lists the relations recorded on a record.
// An empty object lists every relation with the predicate.
type RelationReader interface {
	ListNamedRelations(ctx context.Context, pid, predicate, object string) ([]domain.Relation, error)
}

// RelationWriter adds and removes relations on a record. Implementations
// return an error matching domain.ErrPublished when the record is published
// and may not be changed.
type RelationWriter interface {
	AddRelation(ctx context.Context, pid, subject, predicate, object string, literal bool, comment string) error
	DeleteRelation(ctx context.Context, pid, subject, predicate, object string, literal bool, comment string) error
}

// StateWriter changes the publication state of a record
type StateWriter interface {
	SetObjectState(ctx context.Context, pid string, state domain.State, comment string) error
}

// Repository is the full set of capabilities the relation maintainer needs
type Repository interface {
	DocumentReader
	RelationReader
	RelationWriter
	StateWriter
}
