package mid

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set of metrics updated by the middleware and served by the debug mux.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of API requests.",
	}, []string{"method", "status"})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "api",
		Name:      "errors_total",
		Help:      "Total number of API requests that ended in an error.",
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "api",
		Name:      "panics_total",
		Help:      "Total number of panics recovered while handling requests.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "powchain",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Increment the request and error counters.
			if err != nil {
				errorsTotal.Inc()
			}

			if v, verr := web.GetValues(ctx); verr == nil {
				requestsTotal.WithLabelValues(r.Method, strconv.Itoa(v.StatusCode)).Inc()
				requestDuration.WithLabelValues(r.Method).Observe(time.Since(v.Now).Seconds())
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
