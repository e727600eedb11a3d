// Package poller keeps cached dashboard data warm.
//
// Jobs are registered with their own refresh interval. A single ticker loop
// runs every job that is due, with bounded concurrency. Failures are logged
// and retried on the next tick.
package poller
