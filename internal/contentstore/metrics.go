package contentstore

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type instrumentedStore struct {
	next     Store
	calls    *prometheus.CounterVec
	duration prometheus.Histogram
	size     prometheus.Histogram
}

// Instrument wraps a store with prometheus metrics registered on reg:
//
//	credential_content_store_uploads_total{result="ok|error"}
//	credential_content_store_upload_duration_seconds
//	credential_content_store_upload_bytes
func Instrument(next Store, reg prometheus.Registerer) (Store, error) {
	s := &instrumentedStore{
		next: next,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credential",
			Subsystem: "content_store",
			Name:      "uploads_total",
			Help:      "Content store uploads by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "credential",
			Subsystem: "content_store",
			Name:      "upload_duration_seconds",
			Help:      "Content store upload latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		size: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "credential",
			Subsystem: "content_store",
			Name:      "upload_bytes",
			Help:      "Size of uploaded credential files.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{s.calls, s.duration, s.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *instrumentedStore) Store(ctx context.Context, content []byte) (string, error) {
	start := time.Now()
	id, err := s.next.Store(ctx, content)
	s.duration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.calls.WithLabelValues("error").Inc()
		return "", err
	}
	s.calls.WithLabelValues("ok").Inc()
	s.size.Observe(float64(len(content)))
	return id, nil
}

func (s *instrumentedStore) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

func (s *instrumentedStore) Close() error { return s.next.Close() }

func (s *instrumentedStore) Unwrap() Store { return s.next }
