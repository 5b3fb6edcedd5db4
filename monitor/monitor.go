// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/fruitbox/logger"
)

const (
	ResultAccepted = "accepted"
	ResultInvalid  = "invalid"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	Moves            *prometheus.CounterVec
	BoardGenerations prometheus.Counter
	RoomsReclaimed   prometheus.Counter
	MessagesReceived prometheus.Counter
	MoveLatency      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected websocket sessions",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms held in memory",
		}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Submitted selections by result",
		}, []string{"result"}),
		BoardGenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_generations_total",
			Help:      "Board configurations created, initial boards included",
		}),
		RoomsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_reclaimed_total",
			Help:      "Idle rooms removed by the sweeper",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of websocket packets received",
		}),
		MoveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_latency_seconds",
			Help:      "Selection processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}

// Monitor owns its registry so several instances can live in one process.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		m.metrics.OnlinePlayers,
		m.metrics.ActiveRooms,
		m.metrics.Moves,
		m.metrics.BoardGenerations,
		m.metrics.RoomsReclaimed,
		m.metrics.MessagesReceived,
		m.metrics.MoveLatency,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the monitor started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on its own listener. An empty addr disables it.
func (m *Monitor) StartServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Log.Errorw("metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMove(result string) {
	m.metrics.Moves.WithLabelValues(result).Inc()
}

func (m *Monitor) IncBoardGenerations() {
	m.metrics.BoardGenerations.Inc()
}

func (m *Monitor) AddRoomsReclaimed(n int) {
	m.metrics.RoomsReclaimed.Add(float64(n))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) ObserveMoveLatency(duration time.Duration) {
	m.metrics.MoveLatency.Observe(duration.Seconds())
}
