package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestFlowMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewFlowMetrics(reg)
	metrics.IncVariantAssigned("B")
	metrics.IncVariantAssigned("B")
	metrics.IncFlowDecision("found_job", "step1Offer")
	metrics.IncResolved("standard")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "retention_variant_assigned_total", "variant", "B"); err != nil {
		t.Fatalf("fetch variant: %v", err)
	} else if got != 2 {
		t.Fatalf("expected variant=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "retention_flow_decision_total", "flow_type", "found_job"); err != nil {
		t.Fatalf("fetch decision: %v", err)
	} else if got != 1 {
		t.Fatalf("expected decision=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "retention_cancellation_resolved_total", "flow_type", "standard"); err != nil {
		t.Fatalf("fetch resolved: %v", err)
	} else if got != 1 {
		t.Fatalf("expected resolved=1, got %f", got)
	}
}

func TestFlowMetricsNilSafe(t *testing.T) {
	metrics := NewFlowMetrics(nil)
	metrics.IncVariantAssigned("A")
	metrics.IncFlowDecision("standard", "step1Offer")
	metrics.IncResolved("")

	var none *FlowMetrics
	none.IncResolved("standard")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
