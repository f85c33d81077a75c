package ledger

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// instrumentedGateway records the count, outcome and latency of every ledger call
type instrumentedGateway struct {
	next     Gateway
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Instrument wraps a gateway with prometheus metrics registered on reg:
//
//	credential_ledger_calls_total{kind="read|write",method,result}
//	credential_ledger_call_duration_seconds{kind,method}
//
// result is "ok" or the ledger error code.
func Instrument(next Gateway, reg prometheus.Registerer) (Gateway, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credential",
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Ledger gateway calls by kind, contract method and result.",
	}, []string{"kind", "method", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "credential",
		Subsystem: "ledger",
		Name:      "call_duration_seconds",
		Help:      "Ledger gateway call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "method"})

	for _, c := range []prometheus.Collector{calls, duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &instrumentedGateway{next: next, calls: calls, duration: duration}, nil
}

func (g *instrumentedGateway) Read(ctx context.Context, method string, args ...string) ([]byte, error) {
	start := time.Now()
	result, err := g.next.Read(ctx, method, args...)
	g.observe("read", method, start, err)
	return result, err
}

func (g *instrumentedGateway) Write(ctx context.Context, method string, signer string, args ...string) (Receipt, error) {
	start := time.Now()
	receipt, err := g.next.Write(ctx, method, signer, args...)
	g.observe("write", method, start, err)
	return receipt, err
}

func (g *instrumentedGateway) Ping(ctx context.Context) error {
	return g.next.Ping(ctx)
}

func (g *instrumentedGateway) Close() error {
	return g.next.Close()
}

func (g *instrumentedGateway) observe(kind, method string, start time.Time, err error) {
	g.duration.WithLabelValues(kind, method).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = string(CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	g.calls.WithLabelValues(kind, method, result).Inc()
}
