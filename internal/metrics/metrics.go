package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service counters. A nil *Metrics records nothing, so
// components built in tests can skip it.
type Metrics struct {
	cartMutations       *prometheus.CounterVec
	storageFailures     prometheus.Counter
	ordersSubmitted     prometheus.Counter
	ordersFailed        *prometheus.CounterVec
	notificationsQueued prometheus.Counter
	notificationsSent   prometheus.Counter
	openTabs            prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "angkringan",
			Name:      "cart_mutations_total",
			Help:      "Cart mutations applied by tab-local cart stores.",
		}, []string{"op"}),
		storageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "angkringan",
			Name:      "cart_storage_failures_total",
			Help:      "Durable storage writes that failed and left the cart in memory only.",
		}),
		ordersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "angkringan",
			Name:      "orders_submitted_total",
			Help:      "Orders created with all line items.",
		}),
		ordersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "angkringan",
			Name:      "orders_failed_total",
			Help:      "Checkout attempts that failed, by step.",
		}, []string{"step"}),
		notificationsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "angkringan",
			Name:      "notifications_queued_total",
			Help:      "Notifications handed to the delivery workers.",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "angkringan",
			Name:      "notifications_sent_total",
			Help:      "Notifications persisted and published.",
		}),
		openTabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "angkringan",
			Name:      "open_tabs",
			Help:      "Tabs currently held by the registry.",
		}),
	}
	reg.MustRegister(
		m.cartMutations,
		m.storageFailures,
		m.ordersSubmitted,
		m.ordersFailed,
		m.notificationsQueued,
		m.notificationsSent,
		m.openTabs,
	)
	return m
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) StorageFailure() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

func (m *Metrics) OrderSubmitted() {
	if m == nil {
		return
	}
	m.ordersSubmitted.Inc()
}

func (m *Metrics) OrderFailed(step string) {
	if m == nil {
		return
	}
	m.ordersFailed.WithLabelValues(step).Inc()
}

func (m *Metrics) NotificationQueued() {
	if m == nil {
		return
	}
	m.notificationsQueued.Inc()
}

func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}

func (m *Metrics) TabOpened() {
	if m == nil {
		return
	}
	m.openTabs.Inc()
}

func (m *Metrics) TabClosed() {
	if m == nil {
		return
	}
	m.openTabs.Dec()
}
