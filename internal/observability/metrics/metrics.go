package metrics

import "github.com/prometheus/client_golang/prometheus"

// MessagingMetrics exposes counters/histograms for the WhatsApp relay.
type MessagingMetrics struct {
	inboundTotal    *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
	reasonerLatency *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	bookingsTotal   prometheus.Counter
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "concierge",
			Name:      "inbound_total",
			Help:      "Inbound webhook deliveries by event kind and outcome",
		}, []string{"kind", "outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "concierge",
			Name:      "outbound_total",
			Help:      "Outbound actions by kind and status",
		}, []string{"action", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whatsapp",
			Subsystem: "concierge",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		reasonerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whatsapp",
			Subsystem: "concierge",
			Name:      "reasoner_latency_seconds",
			Help:      "Latency of AI replies by outcome",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 12, 20},
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "concierge",
			Name:      "session_store_errors_total",
			Help:      "Session store failures by operation",
		}, []string{"op"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "concierge",
			Name:      "bookings_total",
			Help:      "Completed booking flows",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.webhookLatency, m.reasonerLatency, m.storeErrors, m.bookingsTotal)
	return m
}

func (m *MessagingMetrics) ObserveInbound(kind, outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *MessagingMetrics) ObserveOutbound(action string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.outboundTotal.WithLabelValues(action, status).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(method string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(method).Observe(seconds)
}

func (m *MessagingMetrics) ObserveReasoner(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.reasonerLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *MessagingMetrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *MessagingMetrics) ObserveBooking() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}
