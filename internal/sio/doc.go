// Package sio encodes and decodes the Engine.IO v4 / Socket.IO v5 text frames
// spoken by the chat backend's realtime endpoint.
//
// Only the subset a client needs over a raw WebSocket transport is covered:
// the Engine.IO open/close/ping/pong/message packets and, inside message
// packets, Socket.IO CONNECT, DISCONNECT, EVENT, ACK and CONNECT_ERROR.
// Binary attachments are rejected.
//
// Frame examples:
//
//	0{"sid":"abc","pingInterval":25000,"pingTimeout":20000}   engine open
//	2                                                          engine ping
//	40                                                         connect default namespace
//	42["new-message",{"id":"1"}]                               event
//	44{"message":"not authorized"}                             connect error
package sio
