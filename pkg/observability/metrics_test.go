package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestMetrics_ObserveHTTP(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/health", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/health", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/health", "200")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveHTTP("GET", "/", 200, time.Second) })
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(nil)
	m.BudgetImports.WithLabelValues("complex", "ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `autoqm_budget_imports_total{kind="complex",status="ok"} 1`)
}

func TestSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test", attribute.String("k", "v"))
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })
}
