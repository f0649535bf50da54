package tracking

// maxStepMiles guards against GPS teleport artifacts. With a ~60s sampling
// interval, 5 miles in one step is roughly 300 mph: physically implausible,
// so the step is dropped from the total. The reference point still advances.
const maxStepMiles = 5.0

// MileageAccumulator turns accepted location samples into incremental
// billable distance. Distance accrues only while the current sample is at
// driving speed and a prior reference point exists.
type MileageAccumulator struct {
	prev  *Coordinate
	total float64
}

// Restore seeds the running total, used when re-adopting an already-open
// shift. The reference point starts empty so the first sample after resume
// never accrues.
func (m *MileageAccumulator) Restore(total float64) {
	m.prev = nil
	m.total = total
}

// Advance feeds the next accepted sample. driving is the instantaneous
// at-or-above-threshold flag for this sample. Returns the accrued delta in
// miles (zero when idle, on the first sample, or when the step is rejected
// as a teleport). The reference coordinate is updated on every call.
func (m *MileageAccumulator) Advance(c Coordinate, driving bool) float64 {
	var delta float64
	if m.prev != nil && driving {
		d := DistanceMiles(*m.prev, c)
		if d < maxStepMiles {
			delta = d
			m.total += d
		}
	}
	point := c
	m.prev = &point
	return delta
}

// TotalMiles returns the running total for the session. Monotonically
// non-decreasing while the session is open.
func (m *MileageAccumulator) TotalMiles() float64 { return m.total }

// Reset clears the accumulator for a new session.
func (m *MileageAccumulator) Reset() {
	m.prev = nil
	m.total = 0
}
