// Package diff computes what has to change to move the recorded state to the desired one.
package diff

import "git.home.luguber.info/inful/polycrystal/internal/entry"

// Plan is the pair of set differences between desired and recorded state.
type Plan struct {
	ToInstall entry.Set
	ToRemove  entry.Set
}

// Compute returns desired − recorded as ToInstall and recorded − desired as ToRemove.
func Compute(desired, recorded entry.Set) Plan {
	return Plan{
		ToInstall: desired.Difference(recorded),
		ToRemove:  recorded.Difference(desired),
	}
}

// Empty reports whether nothing needs to change.
func (p Plan) Empty() bool {
	return p.ToInstall.Len() == 0 && p.ToRemove.Len() == 0
}

// Apply returns (recorded − ToRemove) ∪ ToInstall, the state to record once the plan succeeded.
func (p Plan) Apply(recorded entry.Set) entry.Set {
	return recorded.Difference(p.ToRemove).Union(p.ToInstall)
}
