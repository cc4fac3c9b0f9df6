// Package store holds conversations and their messages in process memory.
//
// # Ownership
//
// The store owns Conversation and Message records. Messages are append-only:
// a submitting caller appends the user message, and the worker that holds the
// conversation's admission slot appends the assistant reply. Whole
// conversations can be deleted; individual messages cannot.
//
// # Message roles
//
// Each message carries one of four roles, and metadata is a tagged variant
// over them rather than a loose bag:
//
//   - user: content only
//   - assistant_text: content only
//   - assistant_chart: content (summary) plus a ChartPayload
//   - assistant_error: content (user-readable cause) plus an ErrorPayload
//
// # Context windows
//
// BuildContext assembles the recent message history into a prompt prefix so
// the external query service can resolve pronouns and follow-up questions:
//
//	ctx, _ := st.BuildContext(convID, 10)
//	enriched := ctx + question
//
// Nothing here survives a process restart; durable storage is an explicit
// non-goal of this service.
package store
