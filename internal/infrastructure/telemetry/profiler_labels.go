package telemetry

import (
	"context"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelProvider  = "provider_id"
	ProfilingLabelCountry   = "country"
)

// maxLabelValueLength caps label values to keep profile cardinality bounded
const maxLabelValueLength = 64

// highCardinalityLabels are never attached to profiles
var highCardinalityLabels = map[string]bool{
	"request_id":      true,
	"trace_id":        true,
	"span_id":         true,
	"order_id":        true,
	"tracking_number": true,
}

// WithProfilingLabels runs fn with pprof labels attached so its samples can
// be sliced by operation or provider. Without labels fn runs unchanged.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	args := sanitizeLabels(labels)
	if len(args) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(args...), fn)
}

// sanitizeLabels flattens labels into key/value pairs, dropping empty and
// high-cardinality entries and truncating long values
func sanitizeLabels(labels map[string]string) []string {
	args := make([]string, 0, len(labels)*2)
	for k, v := range labels {
		if k == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		if len(v) > maxLabelValueLength {
			v = v[:maxLabelValueLength]
		}
		args = append(args, k, v)
	}
	return args
}
