package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/classes", "4xx"))

	ObserveHTTP(http.MethodGet, "/api/v1/classes", http.StatusNotFound, 20*time.Millisecond)

	after := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/classes", "4xx"))
	assert.Equal(t, before+1, after)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "3xx", statusClass(http.StatusFound))
	assert.Equal(t, "4xx", statusClass(http.StatusBadRequest))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
}
