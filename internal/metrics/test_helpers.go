package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// getMetricValue reads the current value of a gauge or counter.
func getMetricValue(metric prometheus.Metric) (float64, error) {
	pb := &dto.Metric{}
	if err := metric.Write(pb); err != nil {
		return 0, err
	}

	switch {
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), nil
	case pb.Counter != nil:
		return pb.Counter.GetValue(), nil
	default:
		return 0, nil
	}
}
