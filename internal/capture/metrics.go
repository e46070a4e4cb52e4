package capture

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName scopes the capture instruments.
const InstrumentationName = "github.com/labelshot/labelshot/internal/capture"

func meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metrics holds the capture instruments.
type Metrics struct {
	captures metric.Int64Counter
	objects  metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics registers the capture instruments on m, or on the global meter
// provider when m is nil.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = meter()
	}
	captures, err := m.Int64Counter("labelshot.captures",
		metric.WithDescription("Artifact sets written"),
		metric.WithUnit("{capture}"))
	if err != nil {
		return nil, err
	}
	objects, err := m.Int64Counter("labelshot.captured_objects",
		metric.WithDescription("Objects recorded across all captures"),
		metric.WithUnit("{object}"))
	if err != nil {
		return nil, err
	}
	failures, err := m.Int64Counter("labelshot.capture_failures",
		metric.WithDescription("Captures that returned an error"),
		metric.WithUnit("{capture}"))
	if err != nil {
		return nil, err
	}
	duration, err := m.Float64Histogram("labelshot.capture_duration",
		metric.WithDescription("Time spent writing one artifact set"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Metrics{captures: captures, objects: objects, failures: failures, duration: duration}, nil
}

func (m *Metrics) record(ctx context.Context, objects int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failures.Add(ctx, 1)
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("labeled", objects > 0))
	m.captures.Add(ctx, 1, attrs)
	m.objects.Add(ctx, int64(objects))
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
