// Package resolve maps natural-key references (genre name, artist name,
// album title) to the surrogate ids of already committed entities.
package resolve

import (
	"errors"
	"fmt"

	"github.com/franz/catalog-cleaner/internal/source"
)

var (
	// ErrIndexNotSealed is returned when resolving against a table that is not
	// fully committed yet. It means the load order was violated.
	ErrIndexNotSealed = errors.New("reference index not sealed")

	// ErrIndexSealed is returned when adding to a sealed index
	ErrIndexSealed = errors.New("reference index already sealed")

	// ErrDuplicateKey is returned when two committed entities share a key
	ErrDuplicateKey = errors.New("duplicate natural key")
)

// Index maps the dedup key of one committed entity type to its surrogate id
type Index struct {
	kind   source.Kind
	ids    map[string]int64
	sealed bool
}

// NewIndex creates an empty, unsealed index for kind
func NewIndex(kind source.Kind) *Index {
	return &Index{kind: kind, ids: make(map[string]int64)}
}

// Kind returns the entity type the index covers
func (i *Index) Kind() source.Kind {
	return i.kind
}

// Add registers a committed entity
func (i *Index) Add(key string, id int64) error {
	if i.sealed {
		return fmt.Errorf("%s %q: %w", i.kind, key, ErrIndexSealed)
	}
	if _, exists := i.ids[key]; exists {
		return fmt.Errorf("%s %q: %w", i.kind, key, ErrDuplicateKey)
	}
	i.ids[key] = id
	return nil
}

// Seal marks the entity table as fully committed. Lookups are only
// allowed after Seal.
func (i *Index) Seal() {
	i.sealed = true
}

// Sealed reports whether the index has been sealed
func (i *Index) Sealed() bool {
	return i.sealed
}

// Len returns the number of registered entities
func (i *Index) Len() int {
	return len(i.ids)
}

// Lookup finds the id for an exact key
func (i *Index) Lookup(key string) (int64, bool, error) {
	if !i.sealed {
		return 0, false, fmt.Errorf("lookup %s %q: %w", i.kind, key, ErrIndexNotSealed)
	}
	id, ok := i.ids[key]
	return id, ok, nil
}

// Outcome is the result of resolving one reference
type Outcome int

const (
	// Resolved means the reference matched a committed entity
	Resolved Outcome = iota
	// Absent means the reference was empty
	Absent
	// Dangling means the reference named no committed entity
	Dangling
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Absent:
		return "absent"
	case Dangling:
		return "dangling"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Ref is a resolved reference. ID is only meaningful when Outcome is Resolved.
type Ref struct {
	ID      int64
	Outcome Outcome
}

// Valid reports whether the reference points at an entity
func (r Ref) Valid() bool {
	return r.Outcome == Resolved
}

// Optional resolves a nullable reference. Absent and dangling references
// both yield no link; the caller stores null.
func Optional(idx *Index, ref *string) (Ref, error) {
	if ref == nil || *ref == "" {
		if !idx.Sealed() {
			return Ref{}, fmt.Errorf("lookup %s: %w", idx.Kind(), ErrIndexNotSealed)
		}
		return Ref{Outcome: Absent}, nil
	}
	return lookup(idx, *ref)
}

// Required resolves a mandatory reference. Any outcome other than Resolved
// means the owning row must be rejected.
func Required(idx *Index, ref string) (Ref, error) {
	if ref == "" {
		if !idx.Sealed() {
			return Ref{}, fmt.Errorf("lookup %s: %w", idx.Kind(), ErrIndexNotSealed)
		}
		return Ref{Outcome: Absent}, nil
	}
	return lookup(idx, ref)
}

func lookup(idx *Index, key string) (Ref, error) {
	id, ok, err := idx.Lookup(key)
	if err != nil {
		return Ref{}, err
	}
	if !ok {
		return Ref{Outcome: Dangling}, nil
	}
	return Ref{ID: id, Outcome: Resolved}, nil
}
