package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func speed(v float64) *float64 { return &v }

func TestClassifierRequiresThreeConsecutiveSamples(t *testing.T) {
	var c MotionClassifier

	require.Equal(t, VerdictIdle, c.Observe(speed(3.0)).Verdict)
	require.Equal(t, VerdictIdle, c.Observe(speed(3.0)).Verdict)
	require.Equal(t, VerdictDriving, c.Observe(speed(3.0)).Verdict)
}

func TestClassifierSingleSlowSampleCancelsImmediately(t *testing.T) {
	var c MotionClassifier

	c.Observe(speed(5.0))
	c.Observe(speed(5.0))
	require.Equal(t, VerdictDriving, c.Observe(speed(5.0)).Verdict)

	require.Equal(t, VerdictIdle, c.Observe(speed(0.5)).Verdict)

	// Counter restarts from zero: two fast samples are not enough again.
	require.Equal(t, VerdictIdle, c.Observe(speed(5.0)).Verdict)
	require.Equal(t, VerdictIdle, c.Observe(speed(5.0)).Verdict)
	require.Equal(t, VerdictDriving, c.Observe(speed(5.0)).Verdict)
}

func TestClassifierNoisyFastReadingDoesNotFlip(t *testing.T) {
	var c MotionClassifier

	require.Equal(t, VerdictIdle, c.Observe(speed(30.0)).Verdict)
	require.Equal(t, VerdictIdle, c.Observe(speed(0.1)).Verdict)
	require.Equal(t, VerdictIdle, c.Verdict())
}

func TestClassifierThresholdIsInclusive(t *testing.T) {
	var c MotionClassifier

	obs := c.Observe(speed(DrivingSpeedThreshold))
	require.True(t, obs.AboveThreshold)

	obs = c.Observe(speed(DrivingSpeedThreshold - 0.0001))
	require.False(t, obs.AboveThreshold)
	require.Equal(t, VerdictIdle, obs.Verdict)
}

func TestClassifierUnknownSpeedCountsAsIdle(t *testing.T) {
	var c MotionClassifier

	c.Observe(speed(3.0))
	c.Observe(speed(3.0))
	obs := c.Observe(nil)
	require.False(t, obs.AboveThreshold)
	require.Equal(t, VerdictIdle, obs.Verdict)
}
