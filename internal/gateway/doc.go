// Package gateway is the HTTP boundary of querydeck.
//
// The flow clients follow:
//
//  1. POST /api/conversations to open a conversation.
//  2. POST /api/conversations/{id}/messages with a question. The reply is
//     202 Accepted with a task id; processing happens on queue workers.
//  3. Poll GET /api/tasks/{id} until the state is completed or failed.
//  4. GET /api/conversations/{id} (or /chat/{id} for a rendered page) to see
//     the transcript including the assistant's reply.
//
// A full queue answers 429 on submission; the user's message is still
// recorded, so resubmitting the same text is safe. GET /api/queue/status and
// GET /api/health exist for dashboards and probes.
package gateway
