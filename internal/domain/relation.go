package domain

const (
	// PredicateIsPartOfNewspaper links an edition to the newspaper title it belongs to
	PredicateIsPartOfNewspaper = "http://doms.statsbiblioteket.dk/relations/default/0/1/#isPartOfNewspaper"

	// EditionDatastream holds the MODS metadata of an edition record
	EditionDatastream = "EDITION"

	// RelationComment is recorded with every relation write
	RelationComment = "linking to"

	// StateComment is recorded with every publish state change
	StateComment = "comment"
)

// State is the publication state of a repository record
type State string

const (
	StateActive   State = "A"
	StateInactive State = "I"
)

// Relation is a directed, named edge as stored by the repository.
// Subject and Object hold URIs (see ToURI).
type Relation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// NewRelation creates a relation from source to target using the given predicate
func NewRelation(source Item, predicate string, target Item) Relation {
	return Relation{
		Subject:   source.URI(),
		Predicate: predicate,
		Object:    target.URI(),
	}
}

// Target returns the relation object as an Item
func (r Relation) Target() Item {
	return ItemFromURI(r.Object)
}

// EditionMetadata holds the identifying fields of an edition
type EditionMetadata struct {
	AvisID    string `json:"avis_id"`
	IssueDate string `json:"issue_date"`
}
