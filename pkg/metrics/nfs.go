package metrics

import "time"

// NFSMetrics provides observability for the NFS adapter and the mount view
// behind it.
//
// Implementations must be safe for concurrent use. The adapter accepts nil
// and substitutes a no-op implementation, so metrics never cost anything
// when disabled.
type NFSMetrics interface {
	// RecordRequest records a completed RPC procedure with its NFS status
	// label (e.g. "NFS3_OK", "NFS3ERR_NOENT") and duration.
	RecordRequest(procedure, status string, duration time.Duration)

	// RecordRequestStart increments the in-flight gauge for a procedure.
	RecordRequestStart(procedure string)

	// RecordRequestEnd decrements the in-flight gauge for a procedure.
	RecordRequestEnd(procedure string)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// SetMountsVisible updates the gauge of mounts visible in the served
	// namespace, sampled opportunistically during directory reads.
	SetMountsVisible(count uint64)

	// RecordEntryCacheLookup records one entry-cache consultation.
	RecordEntryCacheLookup(hit bool)
}

// NewNoopNFSMetrics returns an NFSMetrics implementation that does nothing.
func NewNoopNFSMetrics() NFSMetrics {
	return noopNFSMetrics{}
}

type noopNFSMetrics struct{}

func (noopNFSMetrics) RecordRequest(procedure, status string, duration time.Duration) {}
func (noopNFSMetrics) RecordRequestStart(procedure string)                            {}
func (noopNFSMetrics) RecordRequestEnd(procedure string)                              {}
func (noopNFSMetrics) SetActiveConnections(count int32)                               {}
func (noopNFSMetrics) RecordConnectionAccepted()                                      {}
func (noopNFSMetrics) RecordConnectionClosed()                                        {}
func (noopNFSMetrics) SetMountsVisible(count uint64)                                  {}
func (noopNFSMetrics) RecordEntryCacheLookup(hit bool)                                {}
