// Package conversation coordinates the ask/answer flow: it records user
// messages, enriches them with recent history, submits them to the queue,
// and — on the worker side — runs the query and insight pipeline and records
// the assistant's reply.
//
// The split matters: Ask runs on the HTTP request path and only touches
// in-memory state, while Process runs on queue workers and makes the slow
// external calls. The service is handed to the queue as its Processor.
package conversation
