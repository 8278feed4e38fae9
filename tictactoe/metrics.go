package tictactoe

import (
	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tictactoe"

// Metrics holds the Prometheus collectors of one server.
type Metrics struct {
	Registry *prometheus.Registry

	connections      prometheus.Gauge
	users            prometheus.Gauge
	games            prometheus.Gauge
	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	messagesDropped  prometheus.Counter
	gamesFinished    *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open connections",
		}),

		users: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "users",
			Help:      "Number of registered users",
		}),

		games: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games",
			Help:      "Number of games in progress",
		}),

		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of decoded client messages",
		}, []string{"kind"}),

		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages queued to clients",
		}, []string{"kind"}),

		messagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of malformed or unexpected client messages",
		}),

		gamesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Total number of finished games by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) received(k data.Kind) {
	m.messagesReceived.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) sent(k data.Kind) {
	m.messagesSent.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) dropped() {
	m.messagesDropped.Inc()
}

func (m *Metrics) finished(r data.Result) {
	m.gamesFinished.WithLabelValues(r.String()).Inc()
}
