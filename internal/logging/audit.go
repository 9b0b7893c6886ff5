package logging

import (
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a user-visible state change worth keeping a trail of.
type AuditEventType string

const (
	AuditLogin          AuditEventType = "login"
	AuditLogout         AuditEventType = "logout"
	AuditCartMutation   AuditEventType = "cart_mutation"
	AuditCartRejected   AuditEventType = "cart_rejected"
	AuditStaleDiscarded AuditEventType = "stale_discarded"
	AuditOrderPlaced    AuditEventType = "order_placed"
	AuditOrderFailed    AuditEventType = "order_failed"
	AuditAdminAction    AuditEventType = "admin_action"
	AuditRouteDenied    AuditEventType = "route_denied"
)

// AuditEvent is one structured entry in the audit category.
type AuditEvent struct {
	Type      AuditEventType
	Target    string
	Success   bool
	Message   string
	Fields    map[string]interface{}
	Timestamp time.Time
}

// CategoryAudit holds the audit trail.
const CategoryAudit Category = "audit"

// Audit records an event. No-op unless the audit category is enabled.
func Audit(evt AuditEvent) {
	l := Get(CategoryAudit)
	if l.sugar == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	kv := []interface{}{
		"event", string(evt.Type),
		"target", evt.Target,
		"success", evt.Success,
		"ts", evt.Timestamp.UnixMilli(),
	}
	for k, v := range evt.Fields {
		kv = append(kv, k, v)
	}
	if evt.Success {
		l.sugar.Infow(evt.Message, kv...)
	} else {
		l.sugar.Warnw(evt.Message, kv...)
	}
}
