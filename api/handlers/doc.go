/*
Package handlers implements the HTTP endpoints.

POST /invoke   run a turn, return all produced messages at once
POST /stream   run a turn, server-sent events while it progresses
GET  /ws       run turns over a websocket, one JSON event per message
GET  /history  full message history of a thread
POST /feedback record a score for a completed run
GET  /info     service and model metadata
GET  /healthz  liveness and classifier status

Responses use a uniform envelope; errors map structured codes onto
HTTP statuses.
*/
package handlers
