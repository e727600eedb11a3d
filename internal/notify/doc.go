// Package notify fans user-facing notifications out to subscribers.
//
// Publishers never block: each subscriber owns an unbounded queue that grows
// as needed, so a slow WebSocket client only delays itself.
package notify
