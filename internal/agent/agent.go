package agent

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"qynex-pulse/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the agent's environment-driven settings
type Config struct {
	ServerURL   string // Pulse server base URL
	GPSURL      string // local GPS bridge base URL
	Email       string
	Password    string
	JobID       string
	JobLabel    string
	MetricsAddr string
}

// LoadConfig reads agent configuration from the environment
func LoadConfig() (Config, error) {
	cfg := Config{
		ServerURL:   os.Getenv("PULSE_SERVER_URL"),
		GPSURL:      os.Getenv("PULSE_GPS_URL"),
		Email:       os.Getenv("PULSE_EMAIL"),
		Password:    os.Getenv("PULSE_PASSWORD"),
		JobID:       os.Getenv("PULSE_JOB_ID"),
		JobLabel:    os.Getenv("PULSE_JOB_LABEL"),
		MetricsAddr: os.Getenv("PULSE_METRICS_ADDR"),
	}

	if cfg.ServerURL == "" {
		return Config{}, fmt.Errorf("PULSE_SERVER_URL is required")
	}
	if cfg.GPSURL == "" {
		cfg.GPSURL = "http://localhost:8947"
	}
	if cfg.Email == "" || cfg.Password == "" {
		return Config{}, fmt.Errorf("PULSE_EMAIL and PULSE_PASSWORD are required")
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9464"
	}

	return cfg, nil
}

// Agent hosts a tracking session on a field device: it logs in, adopts or
// opens a shift, and keeps the session running until shutdown.
type Agent struct {
	cfg     Config
	api     *APIClient
	session *tracking.Session
	metrics *Metrics
	reg     *prometheus.Registry

	lastSnap tracking.Snapshot
}

// New builds an agent from config
func New(cfg Config) *Agent {
	api := NewAPIClient(cfg.ServerURL)
	reg := prometheus.NewRegistry()

	session := tracking.NewSession(tracking.DefaultConfig(), tracking.Deps{
		Auth:        api,
		Shifts:      api,
		Breadcrumbs: api,
		Location:    NewHTTPLocationProvider(cfg.GPSURL),
	})

	return &Agent{
		cfg:     cfg,
		api:     api,
		session: session,
		metrics: NewMetrics(reg),
		reg:     reg,
	}
}

// Run drives the agent until ctx is cancelled. On shutdown the shift is left
// open on purpose: losing power mid-shift must not clock the worker out.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.api.Login(ctx, a.cfg.Email, a.cfg.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Printf("✅ Authenticated as %s", a.cfg.Email)

	metricsServer := &http.Server{
		Addr:    a.cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}),
	}
	go func() {
		log.Printf("📊 Metrics listening on %s", a.cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()
	defer metricsServer.Close()

	adopted, err := a.session.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if adopted {
		log.Printf("🔄 Re-adopted open shift from a previous run")
	} else {
		job := tracking.JobSelection{JobID: a.cfg.JobID, JobLabel: a.cfg.JobLabel}
		if err := a.session.Start(ctx, job); err != nil {
			return fmt.Errorf("start shift: %w", err)
		}
		log.Printf("🟢 Shift started")
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("🔌 Shutting down, shift stays open for resume")
			return nil
		case <-ticker.C:
			a.observe(a.session.Snapshot())
		}
	}
}

// ClockOut ends the current shift. Called by the CLI on explicit request,
// never on plain shutdown.
func (a *Agent) ClockOut(ctx context.Context) error {
	return a.session.Stop(ctx)
}

// ClockOutOnce logs in, adopts the open shift and closes it. Used by the CLI
// when the worker forgot to clock out before powering the device off.
func ClockOutOnce(ctx context.Context, cfg Config) error {
	a := New(cfg)
	if err := a.api.Login(ctx, cfg.Email, cfg.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	adopted, err := a.session.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !adopted {
		return tracking.ErrNoOpenShift
	}

	if err := a.session.Stop(ctx); err != nil {
		return fmt.Errorf("clock out: %w", err)
	}
	log.Printf("🏁 Shift clocked out")
	return nil
}

// Snapshot exposes the session read model
func (a *Agent) Snapshot() tracking.Snapshot {
	return a.session.Snapshot()
}

func (a *Agent) observe(snap tracking.Snapshot) {
	a.metrics.SnapshotPolls.Inc()

	if snap.Active {
		a.metrics.ShiftActive.Set(1)
	} else {
		a.metrics.ShiftActive.Set(0)
	}
	a.metrics.ShiftMiles.Set(snap.TotalMiles)
	a.metrics.ShiftSeconds.Set(float64(snap.ElapsedSeconds))

	if snap.GPS == tracking.GPSActive {
		a.metrics.GPSHealthy.Set(1)
	} else {
		a.metrics.GPSHealthy.Set(0)
	}
	if snap.Sync == tracking.SyncSynced {
		a.metrics.SyncHealthy.Set(1)
	} else {
		a.metrics.SyncHealthy.Set(0)
	}

	// Status line only when something the operator cares about changed
	if snap.Status != a.lastSnap.Status || snap.GPS != a.lastSnap.GPS ||
		snap.Sync != a.lastSnap.Sync || snap.TotalMiles != a.lastSnap.TotalMiles {
		log.Printf("📍 Shift %s | %dm elapsed | %.2f mi | gps=%s sync=%s",
			snap.Status, snap.ElapsedSeconds/60, snap.TotalMiles, snap.GPS, snap.Sync)
	}
	if snap.LastError != "" && snap.LastError != a.lastSnap.LastError {
		log.Printf("⚠️ Session: %s", snap.LastError)
	}
	a.lastSnap = snap
}
