// Package queue implements the bounded in-process task queue that decouples
// message submission from processing.
//
// Admission is two-level. The queue as a whole admits up to its configured
// capacity of outstanding tasks; past that, Submit fails fast with
// ErrQueueFull. Within a conversation, at most one task is ever visible to
// the worker pool; later submissions wait in a per-conversation FIFO and are
// promoted when the in-flight task reaches a terminal state. Workers
// therefore never need to skip or requeue a task, and tasks from one
// conversation always process in submission order no matter how many workers
// run.
//
// Everything lives in process memory. A restart loses queued work, which is
// acceptable for a demo deployment.
package queue
