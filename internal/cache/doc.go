// Package cache is a keyed, time-bounded cache for polled data.
//
// Values are fetched on demand and reused until they are older than the
// cache's interval. Concurrent fetches for one key share a single call.
package cache
