package geometry

import "testing"

func TestRectContainsStrict(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 10}
	if !r.Contains(Point{X: 5, Y: 5}) {
		t.Fatalf("expected interior point to be contained")
	}
	if r.Contains(Point{X: 0, Y: 5}) {
		t.Fatalf("edge point must not count as strictly inside")
	}
	if r.Contains(Point{X: 15, Y: 5}) {
		t.Fatalf("outside point contained")
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	if !a.Intersects(Rect{X: 5, Y: 5, W: 10, H: 10}) {
		t.Fatalf("expected overlap")
	}
	if a.Intersects(Rect{X: 20, Y: 20, W: 5, H: 5}) {
		t.Fatalf("disjoint rects intersect")
	}
}

func TestResolve_MergeBeatsOverlap(t *testing.T) {
	candidates := []Candidate{
		{ZoneID: "cell", Class: ZoneCellBody, RectOverlap: true},
		{ZoneID: "top", Class: ZoneCellTop, RectOverlap: true},
		{ZoneID: "merge", Class: ZoneOrderMerge, PointerInside: true},
	}
	got := Resolve(candidates, Point{})
	if got == nil || got.ZoneID != "merge" {
		t.Fatalf("expected merge zone, got %#v", got)
	}
}

func TestResolve_MergeRequiresPointer(t *testing.T) {
	// A merge zone only overlapped by the dragged element must not win:
	// run formation requires precise aim.
	candidates := []Candidate{
		{ZoneID: "merge", Class: ZoneOrderMerge, RectOverlap: true},
		{ZoneID: "top", Class: ZoneCellTop, RectOverlap: true},
	}
	got := Resolve(candidates, Point{})
	if got == nil || got.ZoneID != "top" {
		t.Fatalf("expected cell-top, got %#v", got)
	}
}

func TestResolve_BinBeatsStrips(t *testing.T) {
	candidates := []Candidate{
		{ZoneID: "top", Class: ZoneCellTop, RectOverlap: true},
		{ZoneID: "bin", Class: ZoneUnscheduledBin, PointerInside: true},
	}
	got := Resolve(candidates, Point{})
	if got == nil || got.ZoneID != "bin" {
		t.Fatalf("expected unscheduled bin, got %#v", got)
	}
}

func TestResolve_StripBeatsBodyWithPointerInside(t *testing.T) {
	// Scenario: the pointer sits inside the cell body while only the thin
	// top strip overlaps the dragged element. The strip must win.
	candidates := []Candidate{
		{ZoneID: "cell", Class: ZoneCellBody, PointerInside: true, RectOverlap: true},
		{ZoneID: "top", Class: ZoneCellTop, RectOverlap: true},
	}
	got := Resolve(candidates, Point{})
	if got == nil || got.ZoneID != "top" {
		t.Fatalf("expected cell-top, got %#v", got)
	}
}

func TestResolve_TopWinsOverBottomOfSameCell(t *testing.T) {
	candidates := []Candidate{
		{ZoneID: "bottom", Class: ZoneCellBottom, RectOverlap: true},
		{ZoneID: "top", Class: ZoneCellTop, RectOverlap: true},
	}
	got := Resolve(candidates, Point{})
	if got == nil || got.ZoneID != "top" {
		t.Fatalf("expected cell-top to win the tie, got %#v", got)
	}
}

func TestResolve_BodyFallback(t *testing.T) {
	candidates := []Candidate{
		{ZoneID: "cell", Class: ZoneCellBody, RectOverlap: true},
	}
	got := Resolve(candidates, Point{})
	if got == nil || got.ZoneID != "cell" {
		t.Fatalf("expected cell body, got %#v", got)
	}
}

func TestResolve_NoMatchRejects(t *testing.T) {
	candidates := []Candidate{
		{ZoneID: "merge", Class: ZoneOrderMerge, RectOverlap: true},
		{ZoneID: "bin", Class: ZoneUnscheduledBin, RectOverlap: true},
	}
	if got := Resolve(candidates, Point{}); got != nil {
		t.Fatalf("expected rejection, got %#v", got)
	}
	if got := Resolve(nil, Point{}); got != nil {
		t.Fatalf("expected nil for empty candidate set")
	}
}

func TestResolve_StrictFromGeometry(t *testing.T) {
	// Callers may leave the flags unset and let the resolver test the
	// pointer against the zone bounds itself.
	candidates := []Candidate{
		{ZoneID: "merge", Class: ZoneRunAppend, Bounds: Rect{X: 0, Y: 0, W: 10, H: 10}},
	}
	got := Resolve(candidates, Point{X: 4, Y: 4})
	if got == nil || got.ZoneID != "merge" {
		t.Fatalf("expected bounds containment to satisfy strict rule, got %#v", got)
	}
}

func TestCandidateMark(t *testing.T) {
	c := Candidate{Bounds: Rect{X: 0, Y: 0, W: 10, H: 10}}
	c.Mark(Point{X: 3, Y: 3}, Rect{X: 8, Y: 8, W: 10, H: 10})
	if !c.PointerInside || !c.RectOverlap {
		t.Fatalf("expected both flags set: %#v", c)
	}
	c.Mark(Point{X: 30, Y: 30}, Rect{X: 40, Y: 40, W: 5, H: 5})
	if c.PointerInside || c.RectOverlap {
		t.Fatalf("expected both flags clear: %#v", c)
	}
}
