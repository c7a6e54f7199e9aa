package conflict

import "time"

// MetricsCollector provides hooks for collecting conflict engine metrics
type MetricsCollector interface {
	// RecordConflictDetected records a newly surfaced conflict by type name
	RecordConflictDetected(conflictType string)

	// RecordResolution records the outcome and duration of one resolution attempt
	RecordResolution(conflictType string, resolved bool, duration time.Duration)

	// RecordUnresolved records a conflict left in the backlog without a matching rule
	RecordUnresolved(conflictType string)

	// RecordChainUnblocked records conflicts auto-resolved by cascade unblocking
	RecordChainUnblocked(count int)
}

// NoOpMetricsCollector is a default implementation that does nothing
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordConflictDetected(conflictType string)                           {}
func (n *NoOpMetricsCollector) RecordResolution(conflictType string, resolved bool, d time.Duration) {}
func (n *NoOpMetricsCollector) RecordUnresolved(conflictType string)                                 {}
func (n *NoOpMetricsCollector) RecordChainUnblocked(count int)                                       {}
