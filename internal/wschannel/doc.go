// Package wschannel serializes sends on a websocket connection.
//
// The websocket transport forbids interleaved writes, so every send funnels
// through a single writer goroutine fed by a channel. Concurrent callers of
// Send never touch the connection directly; they enqueue and wait, with
// context cancellation honored at both the enqueue and delivery stages.
// This is the same single-writer discipline the cache producers use, applied
// to a duplex transport instead of a file.
package wschannel
