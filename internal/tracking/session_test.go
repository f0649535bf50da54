package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers map[int]*pendingTimer
}

type pendingTimer struct {
	at time.Time
	f  func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:    time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		timers: make(map[int]*pendingTimer),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := c.seq
	c.timers[id] = &pendingTimer{at: c.now.Add(d), f: f}
	return &fakeTimer{clock: c, id: id}
}

// Advance moves the clock forward, firing due timers in order. Callbacks run
// without the clock lock held, so they may schedule further timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var nextID int
		var next *pendingTimer
		for id, t := range c.timers {
			if t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && id < nextID) {
				nextID, next = id, t
			}
		}
		if next == nil {
			break
		}
		delete(c.timers, nextID)
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type fakeTimer struct {
	clock *fakeClock
	id    int
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	_, ok := t.clock.timers[t.id]
	delete(t.clock.timers, t.id)
	return ok
}

type fakeAuth struct {
	userID string
	err    error
}

func (a *fakeAuth) CurrentUser(ctx context.Context) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return a.userID, nil
}

type appliedUpdate struct {
	id     string
	update ShiftUpdate
}

type fakeShiftStore struct {
	mu        sync.Mutex
	nextID    string
	createErr error
	updateErr error
	open      *ShiftRecord
	created   []ShiftRecord
	updates   []appliedUpdate
}

func (s *fakeShiftStore) Create(ctx context.Context, shift ShiftRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, shift)
	return s.nextID, nil
}

func (s *fakeShiftStore) Update(ctx context.Context, id string, update ShiftUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, appliedUpdate{id: id, update: update})
	return nil
}

func (s *fakeShiftStore) OpenShiftFor(ctx context.Context, userID string) (*ShiftRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, nil
}

func (s *fakeShiftStore) statusUpdates(status ShiftStatus) []appliedUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appliedUpdate
	for _, u := range s.updates {
		if u.update.Status != nil && *u.update.Status == status {
			out = append(out, u)
		}
	}
	return out
}

type appendedCrumb struct {
	shiftID string
	crumb   Breadcrumb
}

type fakeBreadcrumbStore struct {
	mu       sync.Mutex
	failNext int
	appends  []appendedCrumb
}

func (s *fakeBreadcrumbStore) Append(ctx context.Context, shiftID string, crumb Breadcrumb) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return errors.New("store unavailable")
	}
	s.appends = append(s.appends, appendedCrumb{shiftID: shiftID, crumb: crumb})
	return nil
}

func (s *fakeBreadcrumbStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appends)
}

type positionResult struct {
	sample LocationSample
	err    error
}

type scriptedProvider struct {
	mu      sync.Mutex
	script  []positionResult
	calls   int
	fallbak error
}

func (p *scriptedProvider) Position(ctx context.Context, opts PositionOptions) (LocationSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.script) == 0 {
		err := p.fallbak
		if err == nil {
			err = ErrSignalUnavailable
		}
		return LocationSample{}, err
	}
	next := p.script[0]
	p.script = p.script[1:]
	return next.sample, next.err
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func fix(lat float64, spd float64, at time.Time) positionResult {
	return positionResult{sample: LocationSample{
		Latitude:   lat,
		Longitude:  -74.0,
		Accuracy:   5,
		Speed:      &spd,
		CapturedAt: at,
	}}
}

func newTestSession(provider LocationProvider, shifts *fakeShiftStore, crumbs *fakeBreadcrumbStore, clk *fakeClock) *Session {
	return NewSession(DefaultConfig(), Deps{
		Clock:       clk,
		Auth:        &fakeAuth{userID: "user-1"},
		Shifts:      shifts,
		Breadcrumbs: crumbs,
		Location:    provider,
	})
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestStartRequiresAuthentication(t *testing.T) {
	clk := newFakeClock()
	s := NewSession(DefaultConfig(), Deps{
		Clock:       clk,
		Auth:        &fakeAuth{err: errors.New("no session")},
		Shifts:      &fakeShiftStore{nextID: "shift-1"},
		Breadcrumbs: &fakeBreadcrumbStore{},
		Location:    &scriptedProvider{},
	})

	err := s.Start(context.Background(), JobSelection{JobID: "job-1"})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.False(t, s.Snapshot().Active)
}

func TestStartRejectsSecondOpenShift(t *testing.T) {
	clk := newFakeClock()
	shifts := &fakeShiftStore{nextID: "shift-1"}
	s := newTestSession(&scriptedProvider{}, shifts, &fakeBreadcrumbStore{}, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	err := s.Start(context.Background(), JobSelection{JobID: "job-2"})
	require.ErrorIs(t, err, ErrShiftAlreadyOpen)
}

func TestDrivingScenario(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	provider := &scriptedProvider{script: []positionResult{
		fix(40.0, 2.8, t0),
		fix(40.000724, 2.8, t0.Add(60*time.Second)),
		fix(40.001448, 2.8, t0.Add(120*time.Second)),
		fix(40.002172, 0.5, t0.Add(180*time.Second)),
	}}
	shifts := &fakeShiftStore{nextID: "shift-1"}
	crumbs := &fakeBreadcrumbStore{}
	s := newTestSession(provider, shifts, crumbs, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1", JobLabel: "Acme / Site A"}))

	// First tick fires immediately on entering Open.
	clk.Advance(0)
	require.Equal(t, 1, provider.callCount())
	require.Equal(t, ShiftStatusActive, s.Snapshot().Status)

	// Second fast sample: still idle (two consecutive), but mileage accrues
	// because the sample itself is above threshold and a prior point exists.
	clk.Advance(60 * time.Second)
	snap := s.Snapshot()
	require.Equal(t, ShiftStatusActive, snap.Status)
	require.InDelta(t, 0.05, snap.TotalMiles, 0.01)

	// Third fast sample: verdict flips to driving.
	clk.Advance(60 * time.Second)
	snap = s.Snapshot()
	require.Equal(t, ShiftStatusDriving, snap.Status)
	require.InDelta(t, 0.10, snap.TotalMiles, 0.01)
	require.Len(t, shifts.statusUpdates(ShiftStatusDriving), 1)

	// Slow sample: verdict reverts immediately and no mileage accrues.
	clk.Advance(60 * time.Second)
	snap = s.Snapshot()
	require.Equal(t, ShiftStatusActive, snap.Status)
	require.InDelta(t, 0.10, snap.TotalMiles, 0.01)
	require.Len(t, shifts.statusUpdates(ShiftStatusActive), 1)

	require.Equal(t, 4, crumbs.count())
	require.Equal(t, int64(180), snap.ElapsedSeconds)
}

func TestTeleportStepNeverBills(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	provider := &scriptedProvider{script: []positionResult{
		fix(40.0, 3.0, t0),
		fix(41.0, 3.0, t0.Add(60*time.Second)), // ~69 miles in one step
		fix(41.000724, 3.0, t0.Add(120*time.Second)),
	}}
	shifts := &fakeShiftStore{nextID: "shift-1"}
	s := newTestSession(provider, shifts, &fakeBreadcrumbStore{}, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	clk.Advance(0)
	clk.Advance(60 * time.Second)
	require.Equal(t, 0.0, s.Snapshot().TotalMiles)

	// The reference point advanced to the teleport target, so the next small
	// step accrues normally.
	clk.Advance(60 * time.Second)
	require.InDelta(t, 0.05, s.Snapshot().TotalMiles, 0.01)
}

func TestWatchdogAutoClockoutFiresExactlyOnce(t *testing.T) {
	clk := newFakeClock()
	provider := &scriptedProvider{} // every sample fails with signal unavailable
	shifts := &fakeShiftStore{nextID: "shift-1"}
	s := newTestSession(provider, shifts, &fakeBreadcrumbStore{}, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	clk.Advance(0)

	for i := 0; i < 6; i++ {
		clk.Advance(60 * time.Second)
	}

	snap := s.Snapshot()
	require.False(t, snap.Active)
	require.Contains(t, snap.LastError, "automatically clocked out")

	closes := shifts.statusUpdates(ShiftStatusAutoClockout)
	require.Len(t, closes, 1)
	require.Equal(t, "shift-1", closes[0].id)
	require.NotNil(t, closes[0].update.ClockOut)

	// The sampling loop is provably stopped: no further provider calls.
	calls := provider.callCount()
	clk.Advance(10 * time.Minute)
	require.Equal(t, calls, provider.callCount())
}

func TestStartWithFailedCreateNeverSamples(t *testing.T) {
	clk := newFakeClock()
	provider := &scriptedProvider{}
	shifts := &fakeShiftStore{createErr: errors.New("network down")}
	crumbs := &fakeBreadcrumbStore{}
	s := newTestSession(provider, shifts, crumbs, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))

	clk.Advance(2 * time.Minute)

	snap := s.Snapshot()
	require.True(t, snap.Active, "timer keeps running for the user")
	require.Equal(t, int64(120), snap.ElapsedSeconds)
	require.Equal(t, SyncError, snap.Sync)
	require.NotEmpty(t, snap.LastError)

	require.Equal(t, 0, provider.callCount(), "sampling must not begin against a placeholder id")
	require.Equal(t, 0, crumbs.count())
}

func TestStopClearsStateBeforeDurableUpdate(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	provider := &scriptedProvider{script: []positionResult{fix(40.0, 1.0, t0)}}
	shifts := &fakeShiftStore{nextID: "shift-1"}
	s := newTestSession(provider, shifts, &fakeBreadcrumbStore{}, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	clk.Advance(0)
	require.NoError(t, s.Stop(context.Background()))

	require.False(t, s.Snapshot().Active)

	done := shifts.statusUpdates(ShiftStatusCompleted)
	require.Len(t, done, 1)
	require.NotNil(t, done[0].update.ClockOut)

	// No leaked timers: the loop is gone.
	calls := provider.callCount()
	clk.Advance(10 * time.Minute)
	require.Equal(t, calls, provider.callCount())
}

func TestStopAfterFailedCreateEndsLocallyOnly(t *testing.T) {
	clk := newFakeClock()
	shifts := &fakeShiftStore{createErr: errors.New("network down")}
	s := newTestSession(&scriptedProvider{}, shifts, &fakeBreadcrumbStore{}, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	require.NoError(t, s.Stop(context.Background()))

	require.False(t, s.Snapshot().Active)
	require.Empty(t, shifts.updates, "no durable row exists to complete")
}

func TestBreadcrumbWriteFailureRetriesSilently(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	provider := &scriptedProvider{script: []positionResult{fix(40.0, 1.0, t0)}}
	shifts := &fakeShiftStore{nextID: "shift-1"}
	crumbs := &fakeBreadcrumbStore{failNext: 1}
	s := newTestSession(provider, shifts, crumbs, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	clk.Advance(0)

	require.Equal(t, 0, crumbs.count())
	require.Equal(t, SyncError, s.Snapshot().Sync)
	require.True(t, s.Snapshot().Active, "write failure never surfaces as a session error")

	// Silent retry after the write-retry delay.
	clk.Advance(30 * time.Second)
	require.Equal(t, 1, crumbs.count())
	require.Equal(t, "shift-1", crumbs.appends[0].shiftID)
}

func TestMalformedSampleRetriesAfterShortDelay(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	nan := positionResult{sample: LocationSample{Latitude: 200, Longitude: -74.0, CapturedAt: t0}}
	provider := &scriptedProvider{script: []positionResult{
		nan,
		fix(40.0, 1.0, t0.Add(5*time.Second)),
	}}
	shifts := &fakeShiftStore{nextID: "shift-1"}
	crumbs := &fakeBreadcrumbStore{}
	s := newTestSession(provider, shifts, crumbs, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	clk.Advance(0)
	require.Equal(t, GPSError, s.Snapshot().GPS)
	require.Equal(t, 0, crumbs.count())

	clk.Advance(5 * time.Second)
	require.Equal(t, 2, provider.callCount())
	require.Equal(t, 1, crumbs.count())
	require.Equal(t, GPSActive, s.Snapshot().GPS)
}

func TestResumeAdoptsOpenShift(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	provider := &scriptedProvider{script: []positionResult{fix(40.0, 1.0, t0)}}
	shifts := &fakeShiftStore{
		nextID: "unused",
		open: &ShiftRecord{
			ID:         ConfirmedID("shift-9"),
			UserID:     "user-1",
			JobID:      "job-1",
			JobLabel:   "Acme / Site A",
			ClockIn:    t0.Add(-30 * time.Minute),
			Status:     ShiftStatusActive,
			TotalMiles: 3.2,
		},
	}
	crumbs := &fakeBreadcrumbStore{}
	s := newTestSession(provider, shifts, crumbs, clk)

	resumed, err := s.Resume(context.Background())
	require.NoError(t, err)
	require.True(t, resumed)

	snap := s.Snapshot()
	require.True(t, snap.Active)
	require.Equal(t, 3.2, snap.TotalMiles)
	require.Equal(t, int64(1800), snap.ElapsedSeconds)

	clk.Advance(0)
	require.Equal(t, 1, crumbs.count())
	require.Equal(t, "shift-9", crumbs.appends[0].shiftID)
}

func TestResumeWithoutOpenShift(t *testing.T) {
	clk := newFakeClock()
	s := newTestSession(&scriptedProvider{}, &fakeShiftStore{}, &fakeBreadcrumbStore{}, clk)

	resumed, err := s.Resume(context.Background())
	require.NoError(t, err)
	require.False(t, resumed)
	require.False(t, s.Snapshot().Active)
}

func TestSampleFailureDoesNotResetWatchdog(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()

	// One good sample at t=60, failures everywhere else. The watchdog must
	// measure from the last success, not from the last attempt.
	script := []positionResult{
		{err: ErrSignalUnavailable},
		fix(40.0, 1.0, t0.Add(60*time.Second)),
	}
	provider := &scriptedProvider{script: script}
	shifts := &fakeShiftStore{nextID: "shift-1"}
	s := newTestSession(provider, shifts, &fakeBreadcrumbStore{}, clk)

	require.NoError(t, s.Start(context.Background(), JobSelection{JobID: "job-1"}))
	clk.Advance(0)

	// Success at t=60 resets the watchdog.
	clk.Advance(60 * time.Second)
	require.Equal(t, GPSActive, s.Snapshot().GPS)

	// Failures from t=120 on; the limit is exceeded relative to t=60.
	for i := 0; i < 5; i++ {
		clk.Advance(60 * time.Second)
		require.True(t, s.Snapshot().Active, fmt.Sprintf("still within the watchdog window at step %d", i))
	}
	clk.Advance(60 * time.Second)
	require.False(t, s.Snapshot().Active)
	require.Len(t, shifts.statusUpdates(ShiftStatusAutoClockout), 1)
}
