// Package sites is the registry of reading sites the shell can host. One
// site is active per process; its id selects the settings subtree the menu
// seeds from.
package sites

import (
	"fmt"
	"net"
	"time"
)

// Site describes one supported reading site.
type Site struct {
	ID      string
	Name    string
	Domain  string
	HomeURL string
}

// NetworkCheckAddr returns the dial address used for the startup
// reachability probe.
func (s Site) NetworkCheckAddr() string {
	return fmt.Sprintf("%s:443", s.Domain)
}

// Reachable reports whether the site answers a TCP connect within the
// timeout. Used only to log offline startups; the shell runs either way.
func (s Site) Reachable(timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", s.NetworkCheckAddr(), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// DefaultID is the site used when config names none.
const DefaultID = "weread"

var registry = []Site{
	{
		ID:      "weread",
		Name:    "微信读书",
		Domain:  "weread.qq.com",
		HomeURL: "https://weread.qq.com/",
	},
}

// Lookup returns the site with the given id.
func Lookup(id string) (Site, bool) {
	for _, s := range registry {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

// Default returns the default site.
func Default() Site {
	s, _ := Lookup(DefaultID)
	return s
}

// All returns the registered sites in declaration order.
func All() []Site {
	out := make([]Site, len(registry))
	copy(out, registry)
	return out
}
