// Package dashboard composes the registry, chain client, loaders and caches
// into the read operations the HTTP server exposes.
//
// A Service holds every collaborator explicitly. Per-request state such as
// the selected market lives in a Session value, never in package globals.
package dashboard
