package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCheckout("success")
		m.RecordCascade("product", 3)
		m.UpdateProductInventory(1, 5)
		m.RecordStockMovement("out", 2)
		m.RecordCartOperation("add")
		m.RecordCatalogOperation("category", "create")
		m.RecordOrderTransition("pending", "paid")
		m.TrackDBOperation("checkout")(time.Now())
	})
}

func TestDomainMetrics(t *testing.T) {
	m := NewMetrics("shop", prometheus.NewRegistry())

	m.RecordCheckout("success")
	m.RecordCheckout("success")
	m.RecordCascade("product", 3)
	m.RecordCascade("product", 0)
	m.UpdateProductInventory(7, 4)
	m.RecordStockMovement("out", 6)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckoutsCounter.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CascadeDeactivatedCounter.WithLabelValues("product")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ProductInventoryGauge.WithLabelValues("7")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.StockMovementsCounter.WithLabelValues("out")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("shop", reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/items/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot)
	})
	e.GET("/metrics", echo.WrapHandler(Handler(reg)))

	for _, path := range []string{"/items/1", "/items/2", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HttpRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HttpRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "418")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "shop_http_requests_total"))
}
