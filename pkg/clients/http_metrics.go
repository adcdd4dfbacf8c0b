package clients

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_http_requests_total",
			Help: "HTTP input requests by host and status code",
		},
		[]string{"host", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prism_http_request_duration_seconds",
			Help:    "Time to response headers of HTTP input requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)
)

func recordRequest(host string, resp *http.Response, err error, d time.Duration) {
	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	httpRequests.WithLabelValues(host, code).Inc()
	httpRequestDuration.WithLabelValues(host).Observe(d.Seconds())
}
