package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movements       *prometheus.CounterVec
	movementAmount  *prometheus.CounterVec
	pinFailures     *prometheus.CounterVec
	nfcSessions     *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_bank_movements_total",
		Help: "Jumlah transaksi yang berhasil di-commit per tipe.",
	}, []string{"type"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_bank_movement_amount_total",
		Help: "Total nominal transaksi yang berhasil di-commit per tipe.",
	}, []string{"type"})
	pinFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_bank_pin_failures_total",
		Help: "Jumlah verifikasi PIN yang gagal, dipisah apakah tag terkunci.",
	}, []string{"locked"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_bank_nfc_sessions_total",
		Help: "Jumlah sesi pembayaran NFC per hasil akhir.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, movements, amount, pinFailures, sessions)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movements:       movements,
		movementAmount:  amount,
		pinFailures:     pinFailures,
		nfcSessions:     sessions,
	}
}

// RecordMovement mencatat satu transaksi yang sudah di-commit.
func (m *Metrics) RecordMovement(kind string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(kind).Inc()
	m.movementAmount.WithLabelValues(kind).Add(amount.InexactFloat64())
}

// RecordPinFailure mencatat PIN yang salah.
func (m *Metrics) RecordPinFailure(locked bool) {
	if m == nil {
		return
	}
	m.pinFailures.WithLabelValues(strconv.FormatBool(locked)).Inc()
}

// RecordSession mencatat perubahan status sesi NFC.
func (m *Metrics) RecordSession(outcome string) {
	if m == nil {
		return
	}
	m.nfcSessions.WithLabelValues(outcome).Inc()
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
