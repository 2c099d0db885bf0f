// Package metrics provides Prometheus metrics for monitoring the chat client.
//
// Key metrics:
//   - REST requests by method, route and status, with latency
//   - Session expirations (401 responses that cleared the credential)
//   - Realtime events received, by name and whether they were dispatched
//   - Reconnect attempts, connect errors and the current connection state
//
// All recorder methods are safe on a nil receiver, so components can run
// without a registry.
package metrics
