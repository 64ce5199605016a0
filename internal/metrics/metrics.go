// Package metrics exposes poll and rotation counters for Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "logwatch"

// Poll results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

type Metrics struct {
	Polls        *prometheus.CounterVec
	Rotations    *prometheus.CounterVec
	LinesRead    *prometheus.CounterVec
	MatchedLines *prometheus.CounterVec
	StateErrors  *prometheus.CounterVec
	Offset       *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tail",
				Name:      "polls_total",
				Help:      "Total number of polls by result",
			},
			[]string{"watcher", "result"},
		),
		Rotations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tail",
				Name:      "rotations_total",
				Help:      "Detected log rotations by kind",
			},
			[]string{"watcher", "kind"},
		),
		LinesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tail",
				Name:      "lines_read_total",
				Help:      "Lines read from watched files",
			},
			[]string{"watcher"},
		),
		MatchedLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tail",
				Name:      "matched_lines_total",
				Help:      "Lines matching a configured pattern",
			},
			[]string{"watcher"},
		),
		StateErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "errors_total",
				Help:      "Tail state load and save failures",
			},
			[]string{"watcher", "op"},
		),
		Offset: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "tail",
				Name:      "offset_bytes",
				Help:      "Current read offset into the watched file",
			},
			[]string{"watcher"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Polls, m.Rotations, m.LinesRead, m.MatchedLines, m.StateErrors, m.Offset} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Poll(watcher, result string) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(watcher, result).Inc()
}

func (m *Metrics) Rotation(watcher, kind string) {
	if m == nil {
		return
	}
	m.Rotations.WithLabelValues(watcher, kind).Inc()
}

func (m *Metrics) Read(watcher string, lines, matched int, offset int64) {
	if m == nil {
		return
	}
	m.LinesRead.WithLabelValues(watcher).Add(float64(lines))
	m.MatchedLines.WithLabelValues(watcher).Add(float64(matched))
	m.Offset.WithLabelValues(watcher).Set(float64(offset))
}

func (m *Metrics) StateError(watcher, op string) {
	if m == nil {
		return
	}
	m.StateErrors.WithLabelValues(watcher, op).Inc()
}

// Server serves /metrics from a gatherer.
type Server struct {
	srv *http.Server
}

func Start(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s := &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}

	go func() {
		logrus.WithField("addr", addr).Info("Starting metrics listener")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("metrics listener stopped")
		}
	}()
	return s
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
