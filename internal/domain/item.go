package domain

import (
	"sort"
	"strings"
)

// URIPrefix is prepended to a PID whenever it appears as a relation subject or object
const URIPrefix = "info:fedora/"

// Item is a repository record (edition or title) identified by its PID.
// Items are comparable values, so two Items built by different collaborators
// are equal when their PIDs are equal.
type Item struct {
	PID string `json:"pid" yaml:"pid"`
}

// NewItem creates an Item for the given PID
func NewItem(pid string) Item {
	return Item{PID: pid}
}

// ItemFromURI creates an Item from a relation object URI
func ItemFromURI(uri string) Item {
	return Item{PID: FromURI(uri)}
}

// URI returns the relation URI form of the item
func (i Item) URI() string {
	return ToURI(i.PID)
}

func (i Item) String() string {
	return i.PID
}

// ToURI adds the repository URI prefix to a bare PID
func ToURI(pid string) string {
	return URIPrefix + pid
}

// FromURI strips the repository URI prefix from a relation URI.
// Values without the prefix are returned unchanged.
func FromURI(uri string) string {
	return strings.TrimPrefix(uri, URIPrefix)
}

// ItemSet is a set of Items compared by membership only
type ItemSet map[Item]struct{}

// NewItemSet creates a set holding the given items
func NewItemSet(items ...Item) ItemSet {
	s := make(ItemSet, len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts an item into the set
func (s ItemSet) Add(item Item) {
	s[item] = struct{}{}
}

// Contains reports whether the item is a member of the set
func (s ItemSet) Contains(item Item) bool {
	_, ok := s[item]
	return ok
}

// Difference returns the items in s that are not in other
func (s ItemSet) Difference(other ItemSet) ItemSet {
	diff := make(ItemSet)
	for item := range s {
		if !other.Contains(item) {
			diff.Add(item)
		}
	}
	return diff
}

// Equal reports whether both sets hold exactly the same items
func (s ItemSet) Equal(other ItemSet) bool {
	if len(s) != len(other) {
		return false
	}
	for item := range s {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

// Sorted returns the members ordered by PID, for stable logs and output
func (s ItemSet) Sorted() []Item {
	items := make([]Item, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Slice(items, func(a, b int) bool {
		return items[a].PID < items[b].PID
	})
	return items
}
