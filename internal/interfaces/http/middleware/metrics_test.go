package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func readMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func attrValue(attrs attribute.Set, key string) (string, bool) {
	for _, attr := range attrs.ToSlice() {
		if string(attr.Key) == key {
			return attr.Value.Emit(), true
		}
	}
	return "", false
}

// meteredCustomerRouter wires the middleware in front of a minimal customer API.
func meteredCustomerRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/customers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"customers": []string{}})
	})
	router.GET("/api/v1/customers/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.POST("/api/v1/customers", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "new"})
	})
	return router
}

func TestHTTPMetrics_NoopWithoutProvider(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		router := meteredCustomerRouter(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("nil meter provider", func(t *testing.T) {
		router := meteredCustomerRouter(HTTPMetrics(HTTPMetricsConfig{Enabled: true, MeterProvider: nil}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHTTPMetricsWithMeter_CountsRequests(t *testing.T) {
	mp, reader := newManualMeter(t)
	router := meteredCustomerRouter(HTTPMetricsWithMeter(mp.Meter("http.server"), true))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	metric := readMetric(t, reader, "http_server_request_total")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestHTTPMetricsWithMeter_StatusAttributes(t *testing.T) {
	mp, reader := newManualMeter(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/customers/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "CUSTOMER_NOT_FOUND"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers/42", nil)
	router.ServeHTTP(w, req)

	metric := readMetric(t, reader, "http_server_request_total")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	attrs := sum.DataPoints[0].Attributes
	status, found := attrValue(attrs, "http.status_code")
	require.True(t, found)
	assert.Equal(t, "404", status)

	class, found := attrValue(attrs, "http.status_class")
	require.True(t, found)
	assert.Equal(t, "4xx", class)
}

func TestHTTPMetricsWithMeter_SeparatesMethodsAndStatuses(t *testing.T) {
	mp, reader := newManualMeter(t)
	router := meteredCustomerRouter(HTTPMetricsWithMeter(mp.Meter("http.server"), true))

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/customers"},
		{http.MethodGet, "/api/v1/customers"},
		{http.MethodPost, "/api/v1/customers"},
		{http.MethodGet, "/api/v1/missing"},
	}
	for _, r := range requests {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(r.method, r.path, nil)
		router.ServeHTTP(w, req)
	}

	metric := readMetric(t, reader, "http_server_request_total")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	// GET 200, POST 201 and the 404 land in separate series
	assert.Len(t, sum.DataPoints, 3)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(4), total)
}

func TestHTTPMetricsWithMeter_RecordsDuration(t *testing.T) {
	mp, reader := newManualMeter(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.POST("/api/v1/customers/merge/preview", func(c *gin.Context) {
		time.Sleep(50 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"fields": gin.H{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/customers/merge/preview", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	metric := readMetric(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, metric)

	hist, ok := metric.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, 0.05)
}

func TestHTTPMetricsWithMeter_RecordsBodySizes(t *testing.T) {
	mp, reader := newManualMeter(t)
	router := meteredCustomerRouter(HTTPMetricsWithMeter(mp.Meter("http.server"), true))

	body := strings.NewReader(`{"first_name":"Ana","last_name":"García","document_number":"52998877"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/customers", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	requestSize := readMetric(t, reader, "http_server_request_size_bytes")
	require.NotNil(t, requestSize)
	reqHist, ok := requestSize.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, reqHist.DataPoints, 1)
	assert.Greater(t, reqHist.DataPoints[0].Sum, float64(0))

	responseSize := readMetric(t, reader, "http_server_response_size_bytes")
	require.NotNil(t, responseSize)
	respHist, ok := responseSize.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Greater(t, respHist.DataPoints[0].Sum, float64(0))
}

func TestHTTPMetricsWithMeter_ActiveRequestsReturnToZero(t *testing.T) {
	mp, reader := newManualMeter(t)
	router := meteredCustomerRouter(HTTPMetricsWithMeter(mp.Meter("http.server"), true))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	metric := readMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	if len(sum.DataPoints) > 0 {
		assert.Equal(t, int64(0), sum.DataPoints[0].Value)
	}
}

func TestHTTPMetricsWithMeter_TenantLabel(t *testing.T) {
	mp, reader := newManualMeter(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	tenantID := "7a1d2f3e-0000-4000-8000-000000000001"
	router.Use(func(c *gin.Context) {
		c.Set(JWTTenantIDKey, tenantID)
		c.Next()
	})
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/customers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"customers": []string{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	router.ServeHTTP(w, req)

	metric := readMetric(t, reader, "http_server_request_total")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	value, found := attrValue(sum.DataPoints[0].Attributes, "tenant_id")
	require.True(t, found, "tenant_id attribute missing")
	assert.Equal(t, tenantID, value)
}

func TestHTTPMetricsWithMeter_RouteCardinality(t *testing.T) {
	mp, reader := newManualMeter(t)
	router := meteredCustomerRouter(HTTPMetricsWithMeter(mp.Meter("http.server"), true))

	// Distinct customer IDs collapse into one series keyed by the route pattern
	for _, id := range []string{"1", "2", "abc", "xyz"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers/"+id, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	metric := readMetric(t, reader, "http_server_request_total")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(4), sum.DataPoints[0].Value)

	route, found := attrValue(sum.DataPoints[0].Attributes, "http.route")
	require.True(t, found)
	assert.Equal(t, "/api/v1/customers/:id", route)
}

func TestHTTPMetricsWithMeter_Disabled(t *testing.T) {
	mp, _ := newManualMeter(t)
	router := meteredCustomerRouter(HTTPMetricsWithMeter(mp.Meter("http.server"), false))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("matched route", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/v1/customers/:id/duplicates", func(c *gin.Context) {
			c.String(http.StatusOK, routePattern(c))
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/customers/123/duplicates", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, "/api/v1/customers/:id/duplicates", w.Body.String())
	})

	t.Run("unmatched route", func(t *testing.T) {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.String(http.StatusNotFound, routePattern(c))
			c.Abort()
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/nonexistent", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, "unknown", w.Body.String())
	})
}

func TestStatusClass(t *testing.T) {
	cases := []struct {
		status   int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{409, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
		{100, "other"},
		{0, "other"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, statusClass(tc.status), "status %d", tc.status)
	}
}

func TestTenantLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		value    any
		expected string
	}{
		{"string tenant", "7a1d2f3e-0000-4000-8000-000000000001", "7a1d2f3e-0000-4000-8000-000000000001"},
		{"empty string", "", ""},
		{"unset", nil, ""},
		{"wrong type", 123, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			if tc.value != nil {
				c.Set(JWTTenantIDKey, tc.value)
			}
			assert.Equal(t, tc.expected, tenantLabel(c))
		})
	}
}

func TestDefaultHTTPMetricsConfig(t *testing.T) {
	cfg := DefaultHTTPMetricsConfig()

	assert.Equal(t, "crm-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Nil(t, cfg.MeterProvider)
}
