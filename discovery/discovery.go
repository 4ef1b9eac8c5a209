// Package discovery maintains the table of hosts observed on the network.
// Only the passive half lives here: ARP traffic seen by the capture pipeline
// feeds the table; active probing is a separate concern.
package discovery

import (
	"net"
	"sort"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// ScannedIP is one discovered host, as exported to CSV.
type ScannedIP struct {
	IP       string
	MAC      string
	Hostname string
	Vendor   string
}

// Store accumulates hosts keyed by IP. Observe and Snapshot are called from
// the UI actor goroutine only; hostname resolution runs on background
// goroutines and communicates through the thread-safe cache.
type Store struct {
	byIP map[string]*ScannedIP

	// Reverse-DNS results, keyed by IP. Also used to dedupe in-flight
	// lookups so a chatty host does not fan out resolver goroutines.
	hostnames *cache.Cache
	resolving sync.Map

	// Seam for tests.
	lookupAddr func(addr string) ([]string, error)
}

func NewStore() *Store {
	return &Store{
		byIP:       make(map[string]*ScannedIP),
		hostnames:  cache.New(10*time.Minute, time.Minute),
		lookupAddr: net.LookupAddr,
	}
}

// Observe records the sender of one ARP frame. Every frame reports; the
// table dedupes by IP, refreshing the MAC.
func (s *Store) Observe(senderIP net.IP, senderMAC net.HardwareAddr) {
	if senderIP == nil || senderIP.IsUnspecified() {
		return
	}
	ip := senderIP.String()
	entry, ok := s.byIP[ip]
	if !ok {
		entry = &ScannedIP{IP: ip}
		s.byIP[ip] = entry
	}
	entry.MAC = senderMAC.String()
}

// ResolveHostnames kicks off reverse-DNS lookups for entries without a cached
// hostname. Called on the UI tick; lookups run off-thread and land in the
// cache, from where Snapshot picks them up.
func (s *Store) ResolveHostnames() {
	for ip := range s.byIP {
		if _, found := s.hostnames.Get(ip); found {
			continue
		}
		if _, inFlight := s.resolving.LoadOrStore(ip, struct{}{}); inFlight {
			continue
		}
		go func(ip string) {
			defer s.resolving.Delete(ip)
			names, err := s.lookupAddr(ip)
			if err != nil || len(names) == 0 {
				// Negative result is cached too, so we do not hammer the
				// resolver for unresolvable hosts.
				s.hostnames.Set(ip, "", cache.DefaultExpiration)
				return
			}
			s.hostnames.Set(ip, names[0], cache.DefaultExpiration)
		}(ip)
	}
}

// Snapshot returns the discovered hosts sorted by IP string, with hostnames
// filled in from the cache.
func (s *Store) Snapshot() []ScannedIP {
	out := make([]ScannedIP, 0, len(s.byIP))
	for ip, entry := range s.byIP {
		row := *entry
		if name, found := s.hostnames.Get(ip); found {
			row.Hostname = name.(string)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}

func (s *Store) Len() int {
	return len(s.byIP)
}
