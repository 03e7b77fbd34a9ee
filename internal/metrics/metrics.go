package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_transitions_total",
			Help: "Session transitions attempted, by transition and result",
		},
		[]string{"transition", "result"},
	)

	SessionRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timetracker_session_running",
			Help: "1 while a timer is running",
		},
	)

	ClockSkewTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_clock_skew_total",
			Help: "Negative durations or elapsed times clamped to zero",
		},
		[]string{"source"},
	)

	// Idle watchdog metrics
	AutoStopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timetracker_idle_auto_stops_total",
			Help: "Timers stopped because the user went idle",
		},
	)

	IdleReadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timetracker_idle_read_errors_total",
			Help: "Failed reads of the user activity source",
		},
	)

	// Reminder metrics
	RemindersFiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timetracker_reminders_fired_total",
			Help: "Start-tracking reminders sent",
		},
	)

	ReminderErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timetracker_reminder_errors_total",
			Help: "Reminders the notification sink failed to deliver",
		},
	)

	// Status surface metrics
	SurfacePushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_surface_pushes_total",
			Help: "Effective updates pushed to the status surface",
		},
		[]string{"part"},
	)
)

func init() {
	prometheus.MustRegister(
		TransitionsTotal,
		SessionRunning,
		ClockSkewTotal,
		AutoStopsTotal,
		IdleReadErrorsTotal,
		RemindersFiredTotal,
		ReminderErrorsTotal,
		SurfacePushesTotal,
	)
}

// Result returns the label value for an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start serves metrics in the background.
func (s *Server) Start() {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
