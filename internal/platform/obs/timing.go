package obs

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

var operationSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sla_operation_duration_seconds",
		Help:    "Duration of timed operations.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	},
	[]string{"op", "outcome"},
)

// Time logs and records the duration of an operation. Call it deferred with
// the named error result: defer obs.Time(ctx, "op")(&err).
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			operationSeconds.WithLabelValues(name, "error").Observe(dur.Seconds())
			log.Printf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
			return
		}
		operationSeconds.WithLabelValues(name, "ok").Observe(dur.Seconds())
		log.Printf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}

// WithRequestID returns ctx tagged with id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
