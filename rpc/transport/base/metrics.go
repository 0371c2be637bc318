package base

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
)

// clientMetrics holds the metrics of a single client connection.
// Each connection has its own set so several clients can live in one process.
type clientMetrics struct {
	set        *metrics.Set
	requests   *metrics.Counter
	responses  *metrics.Counter
	frameBytes *metrics.Counter
	duration   *metrics.Histogram
}

func newClientMetrics(endpoint string, pending func() float64) *clientMetrics {
	set := metrics.NewSet()
	labels := fmt.Sprintf(`{endpoint=%q}`, endpoint)

	set.NewGauge("rms_client_pending"+labels, pending)

	return &clientMetrics{
		set:        set,
		requests:   set.NewCounter("rms_client_requests_total" + labels),
		responses:  set.NewCounter("rms_client_responses_total" + labels),
		frameBytes: set.NewCounter("rms_client_frames_read_bytes_total" + labels),
		duration:   set.NewHistogram("rms_client_request_duration_seconds" + labels),
	}
}
