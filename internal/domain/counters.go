package domain

// Counters is a denormalized completed/total pair kept on Books, Sections and Chapters.
type Counters struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Apply shifts both counters and clamps the result to 0 <= Completed <= Total.
func (c Counters) Apply(dTotal, dCompleted int) Counters {
	next := Counters{Total: c.Total + dTotal, Completed: c.Completed + dCompleted}
	next.Total = max(next.Total, 0)
	next.Completed = min(max(next.Completed, 0), next.Total)
	return next
}

// IsComplete reports whether at least one item exists and all are done.
func (c Counters) IsComplete() bool {
	return c.Total > 0 && c.Completed == c.Total
}

// Percent returns completion as a percentage rounded down, 0 for empty.
func (c Counters) Percent() int {
	if c.Total <= 0 {
		return 0
	}
	return c.Completed * 100 / c.Total
}

// CompletionDelta returns +1 when a chapter became complete, -1 when it stopped being
// complete, and 0 otherwise. The parent Section's CompletedChapters moves by this amount.
func CompletionDelta(prev, next Counters) int {
	switch {
	case !prev.IsComplete() && next.IsComplete():
		return 1
	case prev.IsComplete() && !next.IsComplete():
		return -1
	default:
		return 0
	}
}
