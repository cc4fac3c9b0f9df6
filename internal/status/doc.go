// Package status tracks task lifecycle state for polling clients.
//
// # State machine
//
//	queued -> processing -> completed
//	                     -> failed
//
// Transitions are monotonic and no step is skipped: even a task that fails
// instantly passes through processing so started_at is accurate. Terminal
// records are immutable; repeated polls of a terminal task return the same
// payload.
//
// # Writers
//
// Each record has exactly one writer at a time: the dispatcher registers the
// queued entry during submission, and the assigned worker performs the
// processing and terminal transitions.
//
// # Retention
//
// Terminal records are kept until they have been read at least once and a
// retention TTL has passed since completion. Records nobody polls are
// dropped only after a much longer horizon. The background sweep never
// evicts non-terminal records.
package status
