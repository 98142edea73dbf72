package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FlowMetrics counts the retention flow's branch points: which variant users
// are assigned, where the start decision sends them, and how cancellations
// ultimately resolve.
type FlowMetrics struct {
	variantAssigned *prometheus.CounterVec
	flowDecision    *prometheus.CounterVec
	resolved        *prometheus.CounterVec
}

// NewFlowMetrics registers the flow metrics on the provided registerer.
func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	if reg == nil {
		return &FlowMetrics{}
	}
	variantAssigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_variant_assigned_total",
		Help: "Downsell variants assigned to users starting a cancellation.",
	}, []string{"variant"})
	flowDecision := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_flow_decision_total",
		Help: "Start-of-flow routing decisions by flow type.",
	}, []string{"flow_type", "decision"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_cancellation_resolved_total",
		Help: "Resolved cancellations by terminal flow type.",
	}, []string{"flow_type"})
	reg.MustRegister(variantAssigned, flowDecision, resolved)
	return &FlowMetrics{
		variantAssigned: variantAssigned,
		flowDecision:    flowDecision,
		resolved:        resolved,
	}
}

// IncVariantAssigned counts a fresh variant assignment.
func (f *FlowMetrics) IncVariantAssigned(variant string) {
	if f == nil || f.variantAssigned == nil {
		return
	}
	f.variantAssigned.WithLabelValues(normalizeLabel(variant)).Inc()
}

// IncFlowDecision counts a start-of-flow routing decision.
func (f *FlowMetrics) IncFlowDecision(flowType, decision string) {
	if f == nil || f.flowDecision == nil {
		return
	}
	f.flowDecision.WithLabelValues(normalizeLabel(flowType), normalizeLabel(decision)).Inc()
}

// IncResolved counts a cancellation reaching a terminal state.
func (f *FlowMetrics) IncResolved(flowType string) {
	if f == nil || f.resolved == nil {
		return
	}
	f.resolved.WithLabelValues(normalizeLabel(flowType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
