package budget

import "time"

// =============================================================================
// PERIOD - The covering interval of a budget
// =============================================================================

// Period is a [Start, End] interval, inclusive on both ends. The source
// system disagreed with itself about the comparison direction of "does this
// budget cover this date"; this implementation fixes inclusive-inclusive as
// the single semantics and applies it to both the covering lookup and
// overlap detection. Budgets that touch at a boundary instant therefore
// overlap: adjacent periods must not share a timestamp.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within the period [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Overlaps implements the four-way interval-overlap test: o's start inside
// p, o's end inside p, o containing p, or p containing o.
func (p Period) Overlaps(o Period) bool {
	return !o.End.Before(p.Start) && !o.Start.After(p.End)
}

// Valid reports whether the period is well-formed (start strictly before
// end). Enforced at the request boundary, not by the engine.
func (p Period) Valid() bool {
	return p.Start.Before(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format(time.RFC3339) + ", " + p.End.Format(time.RFC3339) + "]"
}
