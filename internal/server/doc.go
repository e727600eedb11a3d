// Package server exposes the dashboard over HTTP/JSON and streams user
// notifications over a WebSocket at /ws/notifications.
//
// Every handler error is returned as {"error": "..."} with a 4xx or 5xx
// status. A failing upstream never takes the process down.
package server
