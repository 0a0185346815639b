package prometheus

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. A nil *Metrics records nothing,
// so services can be built without a registry.
type Metrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	CatalogOperationsCounter  *prometheus.CounterVec
	CascadeDeactivatedCounter *prometheus.CounterVec

	// Inventory metrics
	ProductInventoryGauge *prometheus.GaugeVec
	StockMovementsCounter *prometheus.CounterVec

	CartOperationsCounter   *prometheus.CounterVec
	CheckoutsCounter        *prometheus.CounterVec
	OrderTransitionsCounter *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg with the configured name prefix
func NewMetrics(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		DbOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of atomic units in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
		CatalogOperationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_catalog_operations_total",
				Help: "Total number of catalog operations",
			},
			[]string{"entity", "operation"},
		),
		CascadeDeactivatedCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_cascade_deactivated_total",
				Help: "Total number of records deactivated by a parent cascade",
			},
			[]string{"entity"},
		),
		ProductInventoryGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_product_inventory",
				Help: "Current inventory level for products",
			},
			[]string{"product_id"},
		),
		StockMovementsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_stock_movements_total",
				Help: "Units moved in or out of stock",
			},
			[]string{"direction"},
		),
		CartOperationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_cart_operations_total",
				Help: "Total number of cart operations",
			},
			[]string{"operation"},
		),
		CheckoutsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_checkouts_total",
				Help: "Total number of checkouts by outcome",
			},
			[]string{"result"},
		),
		OrderTransitionsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_order_transitions_total",
				Help: "Total number of order status transitions",
			},
			[]string{"from", "to"},
		),
	}
}

// TrackDBOperation returns a function that records the duration of a database operation
func (m *Metrics) TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if m == nil {
			return
		}
		m.DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordCatalogOperation increments the counter for catalog operations
func (m *Metrics) RecordCatalogOperation(entity, operation string) {
	if m == nil {
		return
	}
	m.CatalogOperationsCounter.WithLabelValues(entity, operation).Inc()
}

// RecordCascade adds the number of children a deactivation switched off
func (m *Metrics) RecordCascade(entity string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.CascadeDeactivatedCounter.WithLabelValues(entity).Add(float64(count))
}

// UpdateProductInventory updates the gauge for product inventory
func (m *Metrics) UpdateProductInventory(productID uint, count int) {
	if m == nil {
		return
	}
	m.ProductInventoryGauge.WithLabelValues(strconv.FormatUint(uint64(productID), 10)).Set(float64(count))
}

// RecordStockMovement counts units reserved ("out") or restocked ("in")
func (m *Metrics) RecordStockMovement(direction string, qty int) {
	if m == nil || qty <= 0 {
		return
	}
	m.StockMovementsCounter.WithLabelValues(direction).Add(float64(qty))
}

// RecordCartOperation increments the counter for cart operations
func (m *Metrics) RecordCartOperation(operation string) {
	if m == nil {
		return
	}
	m.CartOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordCheckout counts a checkout by outcome
func (m *Metrics) RecordCheckout(result string) {
	if m == nil {
		return
	}
	m.CheckoutsCounter.WithLabelValues(result).Inc()
}

// RecordOrderTransition counts a committed status change
func (m *Metrics) RecordOrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitionsCounter.WithLabelValues(from, to).Inc()
}

// Middleware records HTTP request metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if m == nil {
				return err
			}

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			m.HttpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
			m.HttpRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler exposes the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
