// Package timeline implements the cyclic time horizon: time slots and the
// time ranges tasks are active over.
package timeline

import "fmt"

// TimeSlot is a half-open interval [Start, End) within a cyclic horizon of
// length Cycle.
type TimeSlot struct {
	ID         int
	Start, End float64
	Cycle      float64
}

// Contains reports whether t (wrapped into the cycle) falls in the slot.
func (s TimeSlot) Contains(t float64) bool {
	wrapped := wrap(t, s.Cycle)
	return s.Start <= wrapped && wrapped < s.End
}

func wrap(t, cycle float64) float64 {
	if cycle <= 0 {
		return t
	}
	m := mod(t, cycle)
	return m
}

func mod(a, b float64) float64 {
	m := a
	for m < 0 {
		m += b
	}
	for m >= b {
		m -= b
	}
	return m
}

// Dist is the cyclic distance between two slot ids out of n total slots:
// min(|i-j|, n-|i-j|).
func (s TimeSlot) Dist(other TimeSlot, n int) int {
	d := s.ID - other.ID
	if d < 0 {
		d = -d
	}
	alt := n - d
	if alt < d {
		return alt
	}
	return d
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("TimeSlot(%d, [%g, %g))", s.ID, s.Start, s.End)
}

// TimeRange is the active window of a task: a half-open interval, not
// necessarily aligned to the cycle.
type TimeRange struct {
	Start, End float64
}

// Contains reports whether t falls within the range.
func (r TimeRange) Contains(t float64) bool {
	return r.Start <= t && t < r.End
}

// Len returns the range's length.
func (r TimeRange) Len() float64 {
	return r.End - r.Start
}

// Discretize splits the range into consecutive TimeSlots of the given
// granularity, panicking if granularity does not evenly divide the range
// (mirrors the source's "granularity should be factor of length" check).
func (r TimeRange) Discretize(granularity, cycle float64) []TimeSlot {
	n := r.Len() / granularity
	if n != float64(int(n)) {
		panic("timeline: granularity must evenly divide range length")
	}
	count := int(n)
	slots := make([]TimeSlot, count)
	for i := 0; i < count; i++ {
		slots[i] = TimeSlot{
			ID:    i,
			Start: r.Start + float64(i)*granularity,
			End:   r.Start + float64(i+1)*granularity,
			Cycle: cycle,
		}
	}
	return slots
}

// SlotFor returns the slot among slots whose cyclic interval contains t.
func SlotFor(slots []TimeSlot, t float64) (TimeSlot, bool) {
	for _, s := range slots {
		if s.Contains(t) {
			return s, true
		}
	}
	return TimeSlot{}, false
}
