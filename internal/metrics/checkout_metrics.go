package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления заказов и резервирования стока.
type CheckoutMetrics struct {
	// Счётчики операций оформления
	checkoutStarted  prometheus.Counter
	orderPlaced      prometheus.Counter
	checkoutDeclined prometheus.Counter
	orderCancelled   prometheus.Counter

	// Счётчики резервирований
	reservationCommitted prometheus.Counter
	reservationDeclined  *prometheus.CounterVec

	// Гистограммы времени выполнения
	checkoutDuration    prometheus.Histogram
	reservationDuration prometheus.Histogram
	lockAttempts        prometheus.Histogram

	// Счётчики событий
	outboxEvents   prometheus.Counter
	timelineEvents prometheus.Counter

	// Gauge для активных оформлений
	activeCheckouts prometheus.Gauge
}

// NewCheckoutMetrics создаёт метрики в default-регистраторе Prometheus.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_checkout_started_total",
			Help: "Total number of checkout (place order) calls started",
		}),
		orderPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_orders_placed_total",
			Help: "Total number of orders created successfully",
		}),
		checkoutDeclined: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_checkout_declined_total",
			Help: "Total number of checkouts aborted because a reservation declined",
		}),
		orderCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_orders_cancelled_total",
			Help: "Total number of orders cancelled by users",
		}),
		reservationCommitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_reservations_committed_total",
			Help: "Total number of committed stock reservations",
		}),
		reservationDeclined: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ecom_reservations_declined_total",
			Help: "Total number of declined stock reservations by reason",
		}, []string{"reason"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ecom_checkout_duration_seconds",
			Help:    "Duration of place-order calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		reservationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ecom_reservation_duration_seconds",
			Help:    "Duration of single line-item reservations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		lockAttempts: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ecom_reservation_lock_attempts",
			Help:    "Number of lock acquisition attempts per locking-path reservation",
			Buckets: []float64{1, 2, 3, 5, 8, 10},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ecom_active_checkouts",
			Help: "Number of currently running place-order calls",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик начатых оформлений.
func (m *CheckoutMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
	m.activeCheckouts.Inc()
}

// RecordCheckoutFinished уменьшает gauge активных оформлений.
func (m *CheckoutMetrics) RecordCheckoutFinished() {
	m.activeCheckouts.Dec()
}

// RecordOrderPlaced увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordOrderPlaced() {
	m.orderPlaced.Inc()
}

// RecordCheckoutDeclined увеличивает счётчик прерванных оформлений.
func (m *CheckoutMetrics) RecordCheckoutDeclined() {
	m.checkoutDeclined.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *CheckoutMetrics) RecordOrderCancelled() {
	m.orderCancelled.Inc()
}

// RecordReservationCommitted увеличивает счётчик успешных резервирований.
func (m *CheckoutMetrics) RecordReservationCommitted() {
	m.reservationCommitted.Inc()
}

// RecordReservationDeclined увеличивает счётчик отказов с указанием причины.
func (m *CheckoutMetrics) RecordReservationDeclined(reason string) {
	m.reservationDeclined.WithLabelValues(reason).Inc()
}

// RecordCheckoutDuration фиксирует длительность оформления.
func (m *CheckoutMetrics) RecordCheckoutDuration(d time.Duration) {
	m.checkoutDuration.Observe(d.Seconds())
}

// RecordReservationDuration фиксирует длительность резервирования одной позиции.
func (m *CheckoutMetrics) RecordReservationDuration(d time.Duration) {
	m.reservationDuration.Observe(d.Seconds())
}

// RecordLockAttempts фиксирует число попыток захвата блокировки.
func (m *CheckoutMetrics) RecordLockAttempts(attempts int) {
	m.lockAttempts.Observe(float64(attempts))
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *CheckoutMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}
