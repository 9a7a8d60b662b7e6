package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURIRoundTrip(t *testing.T) {
	tests := []string{
		"info:fedora/uuid:38deefa7-381f-4abf-a6c1-a3531b54f997",
		"info:fedora/doms:ContentModel_Newspaper",
		"info:fedora/",
	}

	for _, uri := range tests {
		t.Run(uri, func(t *testing.T) {
			assert.Equal(t, uri, ToURI(FromURI(uri)))
		})
	}

	t.Run("pid round trip", func(t *testing.T) {
		pid := "uuid:0c1969ca-94be-4ebb-abab-0bd8130e59d7"
		assert.Equal(t, "info:fedora/"+pid, ToURI(pid))
		assert.Equal(t, pid, FromURI(ToURI(pid)))
	})

	t.Run("only the leading prefix is stripped", func(t *testing.T) {
		assert.Equal(t, "uuid:info:fedora/x", FromURI("info:fedora/uuid:info:fedora/x"))
	})

	t.Run("unprefixed value is unchanged", func(t *testing.T) {
		assert.Equal(t, "uuid:abc", FromURI("uuid:abc"))
	})
}

func TestItemEquality(t *testing.T) {
	fromIndex := NewItem("uuid:a")
	fromRepo := ItemFromURI("info:fedora/uuid:a")

	assert.Equal(t, fromIndex, fromRepo)
	assert.True(t, NewItemSet(fromIndex).Contains(fromRepo))
	assert.Equal(t, "info:fedora/uuid:a", fromIndex.URI())
}

func TestItemSetDifference(t *testing.T) {
	a, b, c := NewItem("A"), NewItem("B"), NewItem("C")

	tests := []struct {
		name       string
		wanted     ItemSet
		existing   ItemSet
		wantAdd    []Item
		wantRemove []Item
	}{
		{"one missing", NewItemSet(a, b, c), NewItemSet(a, b), []Item{c}, []Item{}},
		{"one extra", NewItemSet(a, b), NewItemSet(a, b, c), []Item{}, []Item{c}},
		{"equal", NewItemSet(a, b, c), NewItemSet(a, b, c), []Item{}, []Item{}},
		{"disjoint", NewItemSet(b, c), NewItemSet(a), []Item{b, c}, []Item{a}},
		{"both empty", NewItemSet(), NewItemSet(), []Item{}, []Item{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toAdd := tt.wanted.Difference(tt.existing)
			toRemove := tt.existing.Difference(tt.wanted)

			assert.Equal(t, tt.wantAdd, toAdd.Sorted())
			assert.Equal(t, tt.wantRemove, toRemove.Sorted())
			for item := range toAdd {
				assert.False(t, toRemove.Contains(item), "%s both added and removed", item)
			}
		})
	}
}

func TestItemSetEqual(t *testing.T) {
	assert.True(t, NewItemSet(NewItem("A"), NewItem("B")).Equal(NewItemSet(NewItem("B"), NewItem("A"))))
	assert.False(t, NewItemSet(NewItem("A")).Equal(NewItemSet(NewItem("B"))))
	assert.False(t, NewItemSet(NewItem("A")).Equal(NewItemSet()))
	assert.True(t, NewItemSet(NewItem("A"), NewItem("A")).Equal(NewItemSet(NewItem("A"))))
}

func TestNewRelation(t *testing.T) {
	rel := NewRelation(NewItem("uuid:edition"), PredicateIsPartOfNewspaper, NewItem("uuid:title"))

	assert.Equal(t, "info:fedora/uuid:edition", rel.Subject)
	assert.Equal(t, "info:fedora/uuid:title", rel.Object)
	assert.Equal(t, NewItem("uuid:title"), rel.Target())
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	var metaErr *MetadataMissingError
	err := fmt.Errorf("reconcile: %w", &MetadataMissingError{Field: "dateIssued", Err: cause})
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, "dateIssued", metaErr.Field)
	assert.ErrorIs(t, err, cause)

	err = &TransportError{Op: "add relation", PID: "uuid:x", Err: ErrPublished}
	assert.ErrorIs(t, err, ErrPublished)
	assert.Contains(t, err.Error(), "uuid:x")

	err = &IndexQueryError{Query: "q", Err: cause}
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "edition metadata: title missing", (&MetadataMissingError{Field: "title"}).Error())
}
