package domain

import (
	"errors"
	"fmt"
)

// ErrPublished is returned by a repository when it refuses to change the
// relations of a record because the record is published (active).
var ErrPublished = errors.New("record is published")

// MetadataMissingError reports an edition metadata document that lacks a
// required field or could not be parsed at all
type MetadataMissingError struct {
	Field string
	Err   error
}

func (e *MetadataMissingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("edition metadata: %s missing: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("edition metadata: %s missing", e.Field)
}

func (e *MetadataMissingError) Unwrap() error {
	return e.Err
}

// IndexQueryError reports a failed title index query
type IndexQueryError struct {
	Query string
	Err   error
}

func (e *IndexQueryError) Error() string {
	return fmt.Sprintf("index query %q: %v", e.Query, e.Err)
}

func (e *IndexQueryError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed repository call
type TransportError struct {
	Op  string
	PID string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("repository %s %s: %v", e.Op, e.PID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
