// Package connection implements the realtime side of the chat client.
//
// A Socket is one Socket.IO session over a WebSocket. It answers server
// pings, watches the heartbeat and, after a drop, reconnects a bounded number
// of times with a fixed delay before giving up for good.
//
// The Manager owns at most one Socket. It authenticates with the stored
// credential on every (re)connect, exposes the chat actions (join, leave,
// typing) and re-dispatches a fixed set of server events to registered
// handlers.
package connection
