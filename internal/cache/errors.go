package cache

import "errors"

// ErrNoFetch is returned when a key has no fetch function to run.
var ErrNoFetch = errors.New("cache: no fetch function for key")
