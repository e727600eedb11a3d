package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached computation: an operation name and its parameters.
type Key struct {
	Op     string
	Params string
}

// NewKey builds a Key from an operation name and its parameters.
// Parts are formatted with %v and joined with "|". Nil parts format as "".
func NewKey(op string, parts ...any) Key {
	ps := make([]string, len(parts))
	for i, p := range parts {
		if p == nil {
			continue
		}
		if s, ok := p.(fmt.Stringer); ok {
			ps[i] = s.String()
			continue
		}
		ps[i] = fmt.Sprint(p)
	}
	return Key{Op: op, Params: strings.Join(ps, "|")}
}

// flight is the singleflight key. NUL cannot appear in an operation name,
// so distinct Keys never share a flight.
func (k Key) flight() string {
	return k.Op + "\x00" + k.Params
}

// String formats the key for logs and poller job names.
func (k Key) String() string {
	if k.Params == "" {
		return k.Op
	}
	return k.Op + ":" + k.Params
}
