package tracking

// DrivingSpeedThreshold is the speed at or above which a sample counts toward
// the driving verdict: 2.2352 m/s (5 mph).
const DrivingSpeedThreshold = 2.2352

// drivingConfirmSamples is how many consecutive at-or-above-threshold samples
// are required before the verdict flips to driving. A single below-threshold
// sample cancels the verdict immediately; the worker should not stay billed as
// driving after stopping the vehicle, but one noisy fast reading must not flip
// the status either. The asymmetry is deliberate.
const drivingConfirmSamples = 3

// Verdict is the classifier's current motion verdict.
type Verdict int

const (
	VerdictIdle Verdict = iota
	VerdictDriving
)

func (v Verdict) String() string {
	if v == VerdictDriving {
		return "driving"
	}
	return "idle"
}

// Observation is the classifier's view of a single speed sample.
type Observation struct {
	// AboveThreshold is true when this sample's speed is at or above the
	// driving threshold. Mileage accrual keys off this instantaneous flag.
	AboveThreshold bool

	// Verdict is the hysteresis verdict after this sample. The shift status
	// keys off this.
	Verdict Verdict
}

// MotionClassifier turns a stream of speed samples into a driving/idle
// verdict with hysteresis.
type MotionClassifier struct {
	consecutive int
	verdict     Verdict
}

// Observe feeds one speed sample (m/s, nil when the device reported no speed)
// and returns the resulting observation. An unknown speed counts as below
// threshold.
func (c *MotionClassifier) Observe(speed *float64) Observation {
	if speed == nil || *speed < DrivingSpeedThreshold {
		c.consecutive = 0
		c.verdict = VerdictIdle
		return Observation{AboveThreshold: false, Verdict: VerdictIdle}
	}

	c.consecutive++
	if c.consecutive >= drivingConfirmSamples {
		c.verdict = VerdictDriving
	}
	return Observation{AboveThreshold: true, Verdict: c.verdict}
}

// Verdict returns the current hysteresis verdict.
func (c *MotionClassifier) Verdict() Verdict { return c.verdict }

// Reset clears the classifier for a new session.
func (c *MotionClassifier) Reset() {
	c.consecutive = 0
	c.verdict = VerdictIdle
}
