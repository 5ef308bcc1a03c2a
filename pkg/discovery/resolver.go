package discovery

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// DefaultBrowseTimeout is the default timeout for browse operations.
const DefaultBrowseTimeout = 5 * time.Second

// DefaultLookupTimeout is the default timeout for lookup operations.
const DefaultLookupTimeout = 3 * time.Second

// Service is a discovered videoroom front end.
type Service struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// HostName is the target host name.
	HostName string

	// Port is the HTTP port.
	Port int

	// IPs contains the resolved addresses, sorted by preference.
	IPs []net.IP

	// TXT is the decoded TXT payload.
	TXT ServiceTXT
}

// URL returns the join form URL of the service, preferring the first
// resolved address over the host name.
func (s *Service) URL() string {
	scheme := "http"
	if s.TXT.TLS {
		scheme = "https"
	}
	host := strings.TrimSuffix(s.HostName, ".")
	if len(s.IPs) > 0 {
		host = s.IPs[0].String()
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(s.Port)) + s.TXT.Path
}

// MDNSResolver is the interface for mDNS service resolution.
// This allows for dependency injection in tests.
type MDNSResolver interface {
	// Browse browses for services of the given type.
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

	// Lookup looks up a specific service instance.
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver is the production implementation using grandcat/zeroconf.
type zeroconfResolver struct {
	resolver *zeroconf.Resolver
}

func newZeroconfResolver() (*zeroconfResolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return &zeroconfResolver{resolver: r}, nil
}

// Browse blocks until ctx is done. zeroconf closes its own channel, so
// entries are forwarded from a private one.
func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	in := make(chan *zeroconf.ServiceEntry)
	if err := z.resolver.Browse(ctx, service, domain, in); err != nil {
		return err
	}
	return forward(ctx, in, entries)
}

func (z *zeroconfResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	in := make(chan *zeroconf.ServiceEntry)
	if err := z.resolver.Lookup(ctx, instance, service, domain, in); err != nil {
		return err
	}
	return forward(ctx, in, entries)
}

func forward(ctx context.Context, in <-chan *zeroconf.ServiceEntry, out chan<- *zeroconf.ServiceEntry) error {
	for e := range in {
		select {
		case out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// MDNSResolver is the underlying mDNS resolver implementation.
	// If nil, the default zeroconf resolver is used.
	MDNSResolver MDNSResolver

	// BrowseTimeout is the timeout for browse operations.
	// If zero, DefaultBrowseTimeout is used.
	BrowseTimeout time.Duration

	// LookupTimeout is the timeout for lookup operations.
	// If zero, DefaultLookupTimeout is used.
	LookupTimeout time.Duration

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Resolver discovers videoroom services via DNS-SD.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
	log      logging.LeveledLogger
}

// NewResolver creates a new Resolver with the given configuration.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := newZeroconfResolver()
		if err != nil {
			return nil, err
		}
		resolver = zr
	}

	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}

	r := &Resolver{
		config:   config,
		resolver: resolver,
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("discovery")
	}
	return r, nil
}

// Browse discovers videoroom services on the network. The returned channel
// receives services until ctx is done or the browse timeout expires, then
// it is closed. Entries with a malformed TXT record are skipped.
func (r *Resolver) Browse(ctx context.Context) <-chan Service {
	results := make(chan Service)
	entries := make(chan *zeroconf.ServiceEntry)

	ctx, cancel := context.WithTimeout(ctx, r.config.BrowseTimeout)

	go func() {
		defer cancel()
		defer close(results)

		go func() {
			defer close(entries)
			if err := r.resolver.Browse(ctx, ServiceType, DefaultDomain, entries); err != nil && r.log != nil {
				r.log.Warnf("browse %s: %v", ServiceType, err)
			}
		}()

		for entry := range entries {
			svc, err := entryToService(entry)
			if err != nil {
				if r.log != nil {
					r.log.Debugf("skipping %s: %v", entry.Instance, err)
				}
				continue
			}
			select {
			case results <- svc:
			case <-ctx.Done():
				// Drain so the browse goroutine can exit.
				for range entries {
				}
				return
			}
		}
	}()

	return results
}

// Lookup resolves a single instance by name.
func (r *Resolver) Lookup(ctx context.Context, instance string) (*Service, error) {
	if instance == "" || len(instance) > MaxInstanceNameLength {
		return nil, ErrInvalidInstanceName
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 1)
	go func() {
		defer close(entries)
		_ = r.resolver.Lookup(ctx, instance, ServiceType, DefaultDomain, entries)
	}()

	select {
	case entry, ok := <-entries:
		if !ok || entry == nil {
			return nil, ErrServiceNotFound
		}
		svc, err := entryToService(entry)
		if err != nil {
			return nil, err
		}
		return &svc, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func entryToService(entry *zeroconf.ServiceEntry) (Service, error) {
	txt, err := ParseServiceTXT(entry.Text)
	if err != nil {
		return Service{}, err
	}

	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)

	return Service{
		Instance: entry.Instance,
		HostName: entry.HostName,
		Port:     entry.Port,
		IPs:      SortIPsByPreference(ips),
		TXT:      txt,
	}, nil
}

// SortIPsByPreference orders addresses for use in a browser URL.
// Priority order (highest to lowest):
//  1. IPv4 unicast
//  2. IPv6 global unicast
//  3. IPv6 unique local (fc00::/7)
//  4. IPv6 link-local
//  5. Loopback and anything else
func SortIPsByPreference(ips []net.IP) []net.IP {
	if len(ips) <= 1 {
		return ips
	}

	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ipPriority(sorted[i]) < ipPriority(sorted[j])
	})

	return sorted
}

// ipPriority returns the priority of an IP address (lower is better).
func ipPriority(ip net.IP) int {
	switch {
	case ip.To16() == nil:
		return 99
	case ip.IsLoopback():
		return 80
	case ip.To4() != nil:
		return 0
	case isUniqueLocal(ip):
		return 2
	case ip.IsGlobalUnicast():
		return 1
	case ip.IsLinkLocalUnicast():
		return 3
	default:
		return 10
	}
}

// isUniqueLocal returns true if the IP is an IPv6 Unique Local Address (ULA).
func isUniqueLocal(ip net.IP) bool {
	ip = ip.To16()
	return ip != nil && (ip[0] == 0xfc || ip[0] == 0xfd)
}
