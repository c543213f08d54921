// Package sequence computes the renumbering that turns a drop decision into a
// persisted display order.
package sequence

import "errors"

// Step is the spacing between neighboring sequence values. Renumbering the
// whole container on every move keeps the invariant intact even when prior
// values came from a client with different spacing, and the gap leaves room
// for out-of-band insertions without a full renumber.
const Step = 1000

// ErrTargetNotFound reports a stale insertion reference: the target member
// disappeared from the container mid-gesture.
var ErrTargetNotFound = errors.New("sequence: insertion target not found")

// Position names where the moved member lands in the destination container.
type Position int

const (
	Top Position = iota
	Bottom
	Before
	MergeInto
)

// Insertion is the directive derived from the resolved drop zone.
type Insertion struct {
	Pos Position
	// Target is the reference member for Before and MergeInto.
	Target string
}

// IsMerge reports whether the directive is a run-creation merge, which is
// handled by the run collaborator rather than by Plan.
func (i Insertion) IsMerge() bool { return i.Pos == MergeInto }

// Plan removes moving from existing if present, splices it back in at the
// position the directive implies, and renumbers the full resulting list as
// (index+1)*Step. It returns only the members whose sequence value actually
// changed from prior, keeping the persistence payload small; the computation
// always covers the whole list so values can never collide.
//
// prior maps member IDs to their current sequence values; members missing
// from prior are treated as changed.
func Plan(existing []string, prior map[string]int, moving string, ins Insertion) (map[string]int, error) {
	if ins.IsMerge() {
		return nil, errors.New("sequence: merge directives are not plannable")
	}

	residual := make([]string, 0, len(existing)+1)
	for _, id := range existing {
		if id != moving {
			residual = append(residual, id)
		}
	}

	var final []string
	switch ins.Pos {
	case Top:
		final = append([]string{moving}, residual...)
	case Bottom:
		final = append(residual, moving)
	case Before:
		idx := -1
		for i, id := range residual {
			if id == ins.Target {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrTargetNotFound
		}
		final = append(final, residual[:idx]...)
		final = append(final, moving)
		final = append(final, residual[idx:]...)
	default:
		return nil, errors.New("sequence: unknown insertion position")
	}

	changed := make(map[string]int)
	for i, id := range final {
		seq := (i + 1) * Step
		if cur, ok := prior[id]; ok && cur == seq && id != moving {
			continue
		}
		changed[id] = seq
	}
	return changed, nil
}
