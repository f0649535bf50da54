package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the session's timing knobs. Production values come from
// DefaultConfig; tests shrink them.
type Config struct {
	// SampleInterval is the cadence between scheduled ticks. The first tick
	// fires immediately on entering Open to minimize time-to-first-fix.
	SampleInterval time.Duration

	// WatchdogLimit is how long the session tolerates no successful sample
	// before forcing an auto-clockout.
	WatchdogLimit time.Duration

	// MalformedRetryDelay is the short retry after a NaN/malformed sample.
	MalformedRetryDelay time.Duration

	// WriteRetryDelay is the silent retry after a durable-write failure.
	WriteRetryDelay time.Duration
}

// DefaultConfig returns the production timing configuration.
func DefaultConfig() Config {
	return Config{
		SampleInterval:      60 * time.Second,
		WatchdogLimit:       5 * time.Minute,
		MalformedRetryDelay: 5 * time.Second,
		WriteRetryDelay:     30 * time.Second,
	}
}

// Deps are the session's external collaborators.
type Deps struct {
	Clock       Clock // nil means the system clock
	Auth        AuthProvider
	Shifts      ShiftStore
	Breadcrumbs BreadcrumbStore
	Location    LocationProvider
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateStarting
	stateOpen
	stateClosed
)

// autoClockoutMessage is the user-visible explanation for a watchdog closure.
const autoClockoutMessage = "Shift automatically clocked out: no GPS signal for over 5 minutes"

// Session is the top-level shift controller. It owns the active shift's
// lifecycle, orchestrates the sampling cadence, persists breadcrumbs and
// status transitions, and reconciles optimistic local state against the
// durable store.
//
// All mutable state is guarded by mu; timer callbacks and store completions
// funnel through it, which also serializes the read-modify-write of the
// mileage total so overlapping write retries cannot lose updates. Stale
// callbacks are fenced by a generation counter bumped on every close.
type Session struct {
	cfg     Config
	clock   Clock
	auth    AuthProvider
	shifts  ShiftStore
	crumbs  BreadcrumbStore
	sampler *GeoSampler

	mu         sync.Mutex
	state      sessionState
	shift      *ShiftRecord
	classifier MotionClassifier
	mileage    MileageAccumulator
	lastPing   time.Time
	gps        GPSStatus
	sync       SyncStatus
	lastErr    string

	gen      uint64
	timerSeq uint64
	timers   map[uint64]Timer
}

// NewSession builds a session in the Idle state.
func NewSession(cfg Config, deps Deps) *Session {
	clock := deps.Clock
	if clock == nil {
		clock = NewRealClock()
	}
	return &Session{
		cfg:     cfg,
		clock:   clock,
		auth:    deps.Auth,
		shifts:  deps.Shifts,
		crumbs:  deps.Breadcrumbs,
		sampler: NewGeoSampler(deps.Location),
		gps:     GPSSearching,
		sync:    SyncIdle,
		timers:  make(map[uint64]Timer),
	}
}

// Start clocks in: it creates a provisional shift that is immediately visible
// through Snapshot, then issues the durable create. On durable success the
// placeholder id is swapped for the confirmed id and sampling begins. On
// durable failure the session stays visibly open (the timer keeps running)
// but a persistent sync error is surfaced and sampling never starts; the
// create is not retried.
func (s *Session) Start(ctx context.Context, job JobSelection) error {
	userID, err := s.auth.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	s.mu.Lock()
	if s.state == stateStarting || s.state == stateOpen {
		s.mu.Unlock()
		return ErrShiftAlreadyOpen
	}

	shift := &ShiftRecord{
		ID:       ProvisionalID(uuid.NewString()),
		UserID:   userID,
		JobID:    job.JobID,
		JobLabel: job.JobLabel,
		ClockIn:  s.clock.Now(),
		Status:   ShiftStatusActive,
	}
	s.shift = shift
	s.state = stateStarting
	s.classifier.Reset()
	s.mileage.Reset()
	s.gps = GPSSearching
	s.sync = SyncIdle
	s.lastErr = ""
	gen := s.gen
	record := *shift
	s.mu.Unlock()

	log.Printf("🕐 Clock-in: provisional shift %s for user %s (job %s)", record.ID, userID, job.JobID)

	remoteID, createErr := s.shifts.Create(ctx, record)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != stateStarting {
		// Stopped while the create was in flight; the local session already
		// ended and the orphaned row, if any, is left to the store.
		return nil
	}

	if createErr != nil {
		log.Printf("❌ Durable shift create failed: %v", createErr)
		s.sync = SyncError
		s.lastErr = "Could not save shift to the server. Time is tracked locally only."
		return nil
	}

	s.shift.ID = ConfirmedID(remoteID)
	s.state = stateOpen
	s.sync = SyncSynced
	s.lastPing = s.clock.Now()
	log.Printf("✅ Shift confirmed as %s, starting sampling loop", remoteID)

	// First tick fires immediately on entering Open.
	s.scheduleLocked(0, func() { s.runTick(gen, true) })
	return nil
}

// Resume re-adopts an already-open shift from the store, entering Open
// directly with sampling keyed to the confirmed id. Returns false when the
// user has no open shift.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	userID, err := s.auth.CurrentUser(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	open, err := s.shifts.OpenShiftFor(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("looking up open shift: %w", err)
	}
	if open == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStarting || s.state == stateOpen {
		return false, ErrShiftAlreadyOpen
	}

	shift := *open
	s.shift = &shift
	s.state = stateOpen
	s.classifier.Reset()
	s.mileage.Restore(shift.TotalMiles)
	s.gps = GPSSearching
	s.sync = SyncSynced
	s.lastErr = ""
	s.lastPing = s.clock.Now()
	gen := s.gen

	log.Printf("🔄 Resumed open shift %s for user %s", shift.ID, userID)
	s.scheduleLocked(0, func() { s.runTick(gen, true) })
	return true, nil
}

// Stop clocks out. In-memory state is cleared and sampling halted before the
// durable update is attempted; a failed update is reported but never reopens
// the local session.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateStarting && s.state != stateOpen {
		s.mu.Unlock()
		return ErrNoOpenShift
	}

	id := s.shift.ID
	s.closeLocked(ShiftStatusCompleted, "")
	now := s.clock.Now()
	s.mu.Unlock()

	log.Printf("🕐 Clock-out: shift %s ended locally", id)

	if !id.Confirmed() {
		// The create never succeeded; there is no durable row to complete.
		return nil
	}

	status := ShiftStatusCompleted
	if err := s.shifts.Update(ctx, id.String(), ShiftUpdate{
		ClockOut: &now,
		Status:   &status,
	}); err != nil {
		log.Printf("❌ Durable clock-out failed for shift %s: %v", id, err)
		s.mu.Lock()
		s.sync = SyncError
		s.lastErr = "Shift ended locally. Server update failed."
		s.mu.Unlock()
	}
	return nil
}

// Snapshot returns the UI read model.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GPS:       s.gps,
		Sync:      s.sync,
		LastError: s.lastErr,
	}
	if s.shift != nil && (s.state == stateStarting || s.state == stateOpen) {
		snap.Active = true
		snap.Status = s.shift.Status
		snap.ElapsedSeconds = int64(s.clock.Now().Sub(s.shift.ClockIn) / time.Second)
		snap.TotalMiles = s.shift.TotalMiles
		snap.JobLabel = s.shift.JobLabel
	}
	return snap
}

// closeLocked tears the session down: every scheduled timer is stopped, the
// generation fence is bumped so in-flight callbacks become no-ops, and the
// local shift state is cleared. Caller holds mu.
func (s *Session) closeLocked(status ShiftStatus, message string) {
	s.gen++
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	if s.shift != nil {
		now := s.clock.Now()
		s.shift.ClockOut = &now
		s.shift.Status = status
	}
	s.shift = nil
	s.state = stateClosed
	s.classifier.Reset()
	s.mileage.Reset()
	s.gps = GPSSearching
	s.sync = SyncIdle
	s.lastErr = message
}

// scheduleLocked registers a cancelable one-shot timer. Caller holds mu. The
// handle is tracked so closeLocked can cancel everything that is pending.
func (s *Session) scheduleLocked(d time.Duration, f func()) {
	s.timerSeq++
	key := s.timerSeq
	s.timers[key] = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		f()
	})
}

// runTick performs one sampling tick. regular ticks reschedule themselves at
// the sampling cadence; malformed-sample retries run once and leave the
// regular cadence alone.
func (s *Session) runTick(gen uint64, regular bool) {
	s.mu.Lock()
	if gen != s.gen || s.state != stateOpen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	sample, err := s.sampler.Sample(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != stateOpen {
		// Stopped while sampling; discard.
		return
	}

	if err != nil {
		s.handleSampleFailure(gen, err)
	} else {
		s.handleSample(gen, sample)
	}

	// The session may have auto-clocked-out above.
	if regular && s.state == stateOpen {
		s.scheduleLocked(s.cfg.SampleInterval, func() { s.runTick(gen, true) })
	}
}

// handleSampleFailure records the GPS error, checks the signal-loss watchdog
// and, for malformed samples only, schedules a short one-shot retry. The
// watchdog clock is never reset on failure. Caller holds mu.
func (s *Session) handleSampleFailure(gen uint64, err error) {
	s.gps = GPSError
	log.Printf("⚠️  GPS sample failed: %v", err)

	if s.clock.Now().Sub(s.lastPing) > s.cfg.WatchdogLimit {
		s.autoClockoutLocked()
		return
	}

	if errors.Is(err, ErrMalformedSample) {
		s.scheduleLocked(s.cfg.MalformedRetryDelay, func() { s.runTick(gen, false) })
	}
}

// handleSample runs the classifier and accumulator over a successful sample,
// persists the breadcrumb and any mileage/status deltas, and resets the
// watchdog. Durable-write failures are retried once after WriteRetryDelay
// without blocking the next tick. Caller holds mu.
func (s *Session) handleSample(gen uint64, sample LocationSample) {
	s.lastPing = s.clock.Now()
	s.gps = GPSActive

	obs := s.classifier.Observe(sample.Speed)
	delta := s.mileage.Advance(sample.Coordinate(), obs.AboveThreshold)

	shiftID := s.shift.ID.String()
	synced := true

	crumb := Breadcrumb{
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Accuracy:   sample.Accuracy,
		Speed:      sample.Speed,
		RecordedAt: sample.CapturedAt,
	}
	if err := s.crumbs.Append(context.Background(), shiftID, crumb); err != nil {
		log.Printf("⚠️  Breadcrumb write failed, will retry: %v", err)
		synced = false
		s.scheduleLocked(s.cfg.WriteRetryDelay, func() { s.retryBreadcrumb(gen, shiftID, crumb) })
	}

	if delta > 0 {
		total := s.mileage.TotalMiles()
		s.shift.TotalMiles = total
		if err := s.shifts.Update(context.Background(), shiftID, ShiftUpdate{TotalMiles: &total}); err != nil {
			log.Printf("⚠️  Mileage write failed, will retry: %v", err)
			synced = false
			update := ShiftUpdate{TotalMiles: &total}
			s.scheduleLocked(s.cfg.WriteRetryDelay, func() { s.retryShiftUpdate(gen, shiftID, update) })
		}
	}

	want := ShiftStatusActive
	if obs.Verdict == VerdictDriving {
		want = ShiftStatusDriving
	}
	if s.shift.Status != want {
		s.shift.Status = want
		status := want
		if err := s.shifts.Update(context.Background(), shiftID, ShiftUpdate{Status: &status}); err != nil {
			log.Printf("⚠️  Status write failed, will retry: %v", err)
			synced = false
			update := ShiftUpdate{Status: &status}
			s.scheduleLocked(s.cfg.WriteRetryDelay, func() { s.retryShiftUpdate(gen, shiftID, update) })
		}
	}

	if synced {
		s.sync = SyncSynced
		s.lastErr = ""
	} else {
		s.sync = SyncError
	}
}

// retryBreadcrumb is the one-shot silent retry for a failed breadcrumb write.
// It may overlap the next regular tick; the store tolerates unordered
// breadcrumb arrival.
func (s *Session) retryBreadcrumb(gen uint64, shiftID string, crumb Breadcrumb) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	err := s.crumbs.Append(context.Background(), shiftID, crumb)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if err != nil {
		log.Printf("⚠️  Breadcrumb retry failed, dropping: %v", err)
		s.sync = SyncError
	}
}

// retryShiftUpdate is the one-shot silent retry for a failed mileage/status
// write. Mileage updates are last-write-wins; the captured total is only ever
// superseded by a newer one produced on the same serialized path.
func (s *Session) retryShiftUpdate(gen uint64, shiftID string, update ShiftUpdate) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	err := s.shifts.Update(context.Background(), shiftID, update)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if err != nil {
		log.Printf("⚠️  Shift update retry failed, dropping: %v", err)
		s.sync = SyncError
	}
}

// autoClockoutLocked force-closes the session after prolonged signal loss.
// This is the only automatic termination path besides an explicit Stop.
// Caller holds mu.
func (s *Session) autoClockoutLocked() {
	id := s.shift.ID
	log.Printf("🛑 Watchdog: no successful sample within %s, auto-clocking-out shift %s",
		s.cfg.WatchdogLimit, id)

	s.closeLocked(ShiftStatusAutoClockout, autoClockoutMessage)
	now := s.clock.Now()

	if !id.Confirmed() {
		return
	}
	status := ShiftStatusAutoClockout
	if err := s.shifts.Update(context.Background(), id.String(), ShiftUpdate{
		ClockOut: &now,
		Status:   &status,
	}); err != nil {
		log.Printf("❌ Durable auto-clockout failed for shift %s: %v", id, err)
	}
}
