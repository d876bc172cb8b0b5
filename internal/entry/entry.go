// Package entry defines the package entries that make up desired and recorded
// state, and reads the declaration files producers drop into the entries directory.
package entry

import (
	"cmp"
	"fmt"

	"git.home.luguber.info/inful/polycrystal/internal/util/sets"
)

// PackageEntry identifies one package by the remote it comes from, its id and its branch.
// Two entries are the same package exactly when all three fields match.
type PackageEntry struct {
	ID     string `json:"id" yaml:"id"`
	Remote string `json:"remote" yaml:"remote"`
	Branch string `json:"branch" yaml:"branch"`
}

// Set is a set of package entries compared by value.
type Set = sets.Set[PackageEntry]

// NewSet creates a set holding the given entries.
func NewSet(entries ...PackageEntry) Set {
	return sets.New(entries...)
}

func (e PackageEntry) String() string {
	return fmt.Sprintf("%s:%s//%s", e.Remote, e.ID, e.Branch)
}

// Validate reports the first missing required field.
func (e PackageEntry) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("missing required field %q", "id")
	case e.Remote == "":
		return fmt.Errorf("missing required field %q", "remote")
	case e.Branch == "":
		return fmt.Errorf("missing required field %q", "branch")
	}
	return nil
}

// Compare orders entries by remote, id, then branch.
func Compare(a, b PackageEntry) int {
	return cmp.Or(
		cmp.Compare(a.Remote, b.Remote),
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Branch, b.Branch),
	)
}

// Sorted returns the entries of s in Compare order.
func Sorted(s Set) []PackageEntry {
	return s.SortedFunc(Compare)
}
