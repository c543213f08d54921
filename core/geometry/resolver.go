package geometry

import "github.com/haulplan/haulplan/core/board"

// ZoneClass identifies what dropping on a zone means.
type ZoneClass string

const (
	// ZoneOrderMerge drops onto a specific order to form a run with it.
	ZoneOrderMerge ZoneClass = "order-merge"
	// ZoneRunAppend drops onto an existing run to extend it.
	ZoneRunAppend ZoneClass = "run-append"
	// ZoneUnscheduledBin drops into the unscheduled bin.
	ZoneUnscheduledBin ZoneClass = "unscheduled-bin"
	// ZoneCellTop is the thin insertion strip at the top edge of a cell.
	ZoneCellTop ZoneClass = "cell-top"
	// ZoneCellBottom is the thin insertion strip at the bottom edge of a cell.
	ZoneCellBottom ZoneClass = "cell-bottom"
	// ZoneCellBody is the cell surface itself.
	ZoneCellBody ZoneClass = "cell-body"
)

// Candidate is a gesture-scoped drop zone whose geometry overlaps the dragged
// element in the current frame. The host rendering layer supplies both
// overlap tests: PointerInside is the strict test (pointer location inside
// the zone), RectOverlap the loose one (dragged element rectangle intersects
// the zone). Candidates are never persisted.
type Candidate struct {
	ZoneID    string
	Class     ZoneClass
	Bounds    Rect
	Container board.ContainerRef
	// TargetItem is the order or run a merge-class zone represents.
	TargetItem string
	// BeforeMember, when set on an insertion zone, places the dragged item
	// immediately before that member instead of at the container edge.
	BeforeMember string

	PointerInside bool
	RectOverlap   bool
}

// Mark fills in both overlap flags from the pointer location and the dragged
// element's outline rectangle.
func (c *Candidate) Mark(pointer Point, outline Rect) {
	c.PointerInside = c.Bounds.Contains(pointer)
	c.RectOverlap = c.Bounds.Intersects(outline)
}

// strict reports whether the pointer is inside the zone, trusting either the
// caller-supplied flag or the zone's own geometry.
func strict(c Candidate, p Point) bool {
	return c.PointerInside || c.Bounds.Contains(p)
}

// rule is one row of the resolver's priority table.
type rule struct {
	name  string
	match func(Candidate, Point) bool
}

// Merge and bin targets must be aimed deliberately, so they require strict
// pointer containment. Top/bottom strips are visually thin and would almost
// never contain the pointer, so they match on element overlap instead. The
// cell body comes last so it cannot mask a matched strip. Cell-top precedes
// cell-bottom when both strips of one cell overlap at once.
var priority = []rule{
	{"merge-strict", func(c Candidate, p Point) bool {
		return (c.Class == ZoneOrderMerge || c.Class == ZoneRunAppend) && strict(c, p)
	}},
	{"bin-strict", func(c Candidate, p Point) bool {
		return c.Class == ZoneUnscheduledBin && strict(c, p)
	}},
	{"cell-top-overlap", func(c Candidate, _ Point) bool {
		return c.Class == ZoneCellTop && c.RectOverlap
	}},
	{"cell-bottom-overlap", func(c Candidate, _ Point) bool {
		return c.Class == ZoneCellBottom && c.RectOverlap
	}},
	{"cell-body-overlap", func(c Candidate, _ Point) bool {
		return c.Class == ZoneCellBody && c.RectOverlap
	}},
}

// Resolve picks the single zone that should receive the drop, or nil when no
// candidate matches any rule and the drop is rejected. Rules are evaluated
// top to bottom; the first candidate matching the highest-priority rule wins,
// so the outcome is deterministic for a given frame.
func Resolve(candidates []Candidate, pointer Point) *Candidate {
	for _, r := range priority {
		for i := range candidates {
			if r.match(candidates[i], pointer) {
				return &candidates[i]
			}
		}
	}
	return nil
}
