package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "r6voip"

// Metrics holds the signaling collectors. It satisfies core.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	roomsCreated prometheus.Counter
	joins        prometheus.Counter
	kicks        prometheus.Counter
	expired      prometheus.Counter
	rateLimited  prometheus.Counter

	rooms   prometheus.Gauge
	members prometheus.Gauge
	clients prometheus.Gauge
}

// New registers every collector on a fresh registry, along with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created.",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_joins_total",
			Help:      "Successful joins into existing rooms.",
		}),
		kicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_kicked_total",
			Help:      "Members removed by a host.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_expired_total",
			Help:      "Rooms removed by the expiry sweep.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Create or join attempts rejected by the rate limiter.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Live rooms.",
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_members",
			Help:      "Members across all rooms.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Open signaling connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.roomsCreated, m.joins, m.kicks, m.expired, m.rateLimited,
		m.rooms, m.members, m.clients,
	)
	return m
}

func (m *Metrics) RoomCreated() { m.roomsCreated.Inc() }
func (m *Metrics) MemberJoined() { m.joins.Inc() }
func (m *Metrics) MemberKicked() { m.kicks.Inc() }
func (m *Metrics) RateLimited() { m.rateLimited.Inc() }
func (m *Metrics) RoomsExpired(n int) { m.expired.Add(float64(n)) }

// SetOccupancy records the current room, member and connection counts.
func (m *Metrics) SetOccupancy(rooms, members, clients int) {
	m.rooms.Set(float64(rooms))
	m.members.Set(float64(members))
	m.clients.Set(float64(clients))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
