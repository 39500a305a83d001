package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1767225600, 0) }

	m.Observe("order_ttl", 250*time.Millisecond, nil)
	m.Observe("order_ttl", time.Second, errors.New("db down"))
	m.Observe("outbox_retention", 10*time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	success := findSample(mfs, "gtclicks_cron_job_runs_total", "job", "order_ttl", "outcome", "success")
	failure := findSample(mfs, "gtclicks_cron_job_runs_total", "job", "order_ttl", "outcome", "failure")
	if success.GetCounter().GetValue() != 1 || failure.GetCounter().GetValue() != 1 {
		t.Fatalf("unexpected run counters success=%v failure=%v", success, failure)
	}

	duration := findSample(mfs, "gtclicks_cron_job_duration_seconds", "job", "order_ttl")
	if got := duration.GetHistogram().GetSampleCount(); got != 2 {
		t.Fatalf("expected 2 duration samples, got %d", got)
	}
	if got := duration.GetHistogram().GetSampleSum(); got < 1.25 {
		t.Fatalf("expected duration sum >= 1.25, got %f", got)
	}

	last := findSample(mfs, "gtclicks_cron_job_last_success_timestamp_seconds", "job", "order_ttl")
	if got := last.GetGauge().GetValue(); got != 1767225600 {
		t.Fatalf("unexpected last success %f", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.Observe("job", time.Second, nil)
	NewCronJobMetrics(nil).Observe("job", time.Second, errors.New("boom"))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	sample := findSample(mfs, name, label, value)
	if sample == nil {
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return sample.GetCounter().GetValue(), nil
}

// findSample returns the first sample of the named family carrying every
// label/value pair given in labels.
func findSample(mfs []*dto.MetricFamily, name string, labels ...string) *dto.Metric {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	return nil
}

func hasLabels(pairs []*dto.LabelPair, labels []string) bool {
	for i := 0; i+1 < len(labels); i += 2 {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == labels[i] && pair.GetValue() == labels[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
