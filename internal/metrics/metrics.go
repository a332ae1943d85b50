// Package metrics exposes the server's prometheus collectors and the
// /metrics scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_connections_total",
		Help: "WebSocket connections accepted since start.",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aether_sessions_active",
		Help: "Currently connected sessions.",
	})

	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_messages_received_total",
		Help: "Data frames received across all sessions.",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_messages_sent_total",
		Help: "Data frames written across all sessions.",
	})

	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_decode_errors_total",
		Help: "Inbound frames that failed to decode as a command.",
	})

	CommandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aether_commands_total",
		Help: "Commands executed, by kind.",
	}, []string{"kind"})

	BroadcastsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_broadcasts_published_total",
		Help: "Envelopes published to the bus.",
	})

	BroadcastsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_broadcasts_delivered_total",
		Help: "Envelopes that passed a session's delivery filter and were written.",
	})

	BroadcastsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aether_broadcasts_dropped_total",
		Help: "Envelopes dropped from lagging subscriber backlogs.",
	})

	StoreKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aether_store_keys",
		Help: "Keys currently held in the expiring table.",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }
