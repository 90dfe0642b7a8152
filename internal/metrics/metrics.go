package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	permissionDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "szbi_permission_denials_total",
		Help: "Requests refused by the permission gate",
	}, []string{"mode"})
	workflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "szbi_workflow_transitions_total",
		Help: "Workflow transition attempts by workflow and result",
	}, []string{"workflow", "result"})
	activityLogWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "szbi_activity_log_writes_total",
		Help: "Activity log writes by result",
	}, []string{"result"})
	deletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "szbi_deletions_total",
		Help: "Delete requests by entity and result",
	}, []string{"entity", "result"})
)

// Register adds the collectors to registry. Each registry may only be passed once.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(permissionDenials, workflowTransitions, activityLogWrites, deletions)
}

// Handler exposes the registry in the Prometheus text format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncPermissionDenied counts a gate refusal; mode is "redirect" or "raise".
func IncPermissionDenied(mode string) { permissionDenials.WithLabelValues(mode).Inc() }

// IncWorkflowTransition counts a transition attempt; result is "ok" or "rejected".
func IncWorkflowTransition(workflow, result string) {
	workflowTransitions.WithLabelValues(workflow, result).Inc()
}

// IncActivityLogWrite counts an activity log write; result is "ok" or "error".
func IncActivityLogWrite(result string) { activityLogWrites.WithLabelValues(result).Inc() }

// IncDeletion counts a delete request; result is "deleted", "blocked" or "error".
func IncDeletion(entity, result string) { deletions.WithLabelValues(entity, result).Inc() }
