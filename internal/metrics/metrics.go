package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/reseller-store/internal/models"
)

var registry = prometheus.NewRegistry()

var (
	couponValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reseller_store",
		Name:      "coupon_validations_total",
		Help:      "Coupon validations by outcome (accepted or rejection reason).",
	}, []string{"outcome"})

	ordersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reseller_store",
		Name:      "orders_placed_total",
		Help:      "Orders written at checkout.",
	}, []string{"coupon"})

	orderTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reseller_store",
		Name:      "order_total_amount",
		Help:      "Final order totals after discount.",
		Buckets:   prometheus.ExponentialBuckets(10000, 2, 12),
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reseller_store",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status class.",
	}, []string{"route", "status"})
)

func init() {
	registry.MustRegister(
		couponValidations,
		ordersPlaced,
		orderTotal,
		httpRequests,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

func ObserveCouponValidation(outcome string) {
	couponValidations.WithLabelValues(outcome).Inc()
}

func ObserveOrderPlaced(order *models.Order) {
	label := "none"
	if order.AppliedCouponID != nil {
		label = "applied"
	}
	ordersPlaced.WithLabelValues(label).Inc()

	total, _ := order.TotalAmount.Float64()
	orderTotal.Observe(total)
}

func ObserveHTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
