package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/grandcat/zeroconf"
)

func TestResolver_Browse(t *testing.T) {
	mock := NewMockMDNSResolver()
	mock.RegisterService(ServiceType, MockService("a", 8080, net.ParseIP("192.168.1.10"), ServiceTXT{Variant: "call"}))
	mock.RegisterService(ServiceType, MockService("b", 8443, net.ParseIP("fd00::1"), ServiceTXT{Variant: "room", TLS: true}))
	broken := MockService("c", 1, nil, ServiceTXT{})
	broken.Text = []string{"v=9"}
	mock.RegisterService(ServiceType, broken)
	mock.RegisterService("_other._tcp", MockService("d", 1, nil, ServiceTXT{}))

	r, err := NewResolver(ResolverConfig{MDNSResolver: mock, BrowseTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	var urls []string
	for svc := range r.Browse(context.Background()) {
		urls = append(urls, svc.URL())
	}
	want := []string{"http://192.168.1.10:8080/", "https://[fd00::1]:8443/"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("Browse() URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_BrowseCancelled(t *testing.T) {
	mock := NewMockMDNSResolver()
	mock.RegisterService(ServiceType, MockService("a", 8080, net.ParseIP("10.0.0.1"), ServiceTXT{}))
	r, _ := NewResolver(ResolverConfig{MDNSResolver: mock})

	ctx, cancel := context.WithCancel(context.Background())
	results := r.Browse(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		for range results {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Browse() channel not closed after cancel")
	}
}

func TestResolver_Lookup(t *testing.T) {
	mock := NewMockMDNSResolver()
	mock.RegisterService(ServiceType, MockService("lobby", 8080, net.ParseIP("10.0.0.5"), ServiceTXT{Variant: "room"}))
	r, _ := NewResolver(ResolverConfig{MDNSResolver: mock, LookupTimeout: 200 * time.Millisecond})

	svc, err := r.Lookup(context.Background(), "lobby")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if svc.TXT.Variant != "room" || svc.Port != 8080 {
		t.Errorf("Lookup() = %+v", svc)
	}

	if _, err := r.Lookup(context.Background(), "missing"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Lookup(missing) error = %v, want %v", err, ErrServiceNotFound)
	}
	if _, err := r.Lookup(context.Background(), ""); !errors.Is(err, ErrInvalidInstanceName) {
		t.Errorf("Lookup(\"\") error = %v, want %v", err, ErrInvalidInstanceName)
	}
}

type blockingResolver struct{}

func (blockingResolver) Browse(ctx context.Context, _, _ string, _ chan<- *zeroconf.ServiceEntry) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingResolver) Lookup(ctx context.Context, _, _, _ string, _ chan<- *zeroconf.ServiceEntry) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestResolver_LookupTimeout(t *testing.T) {
	r, _ := NewResolver(ResolverConfig{MDNSResolver: blockingResolver{}, LookupTimeout: 20 * time.Millisecond})
	if _, err := r.Lookup(context.Background(), "lobby"); !errors.Is(err, ErrTimeout) {
		t.Errorf("Lookup() error = %v, want %v", err, ErrTimeout)
	}
}

func TestSortIPsByPreference(t *testing.T) {
	in := []net.IP{
		net.ParseIP("fe80::1"),
		net.ParseIP("127.0.0.1"),
		net.ParseIP("fd12::1"),
		net.ParseIP("2001:db8::1"),
		net.ParseIP("192.168.0.2"),
	}
	got := SortIPsByPreference(in)
	want := []string{"192.168.0.2", "2001:db8::1", "fd12::1", "fe80::1", "127.0.0.1"}
	for i, ip := range got {
		if ip.String() != want[i] {
			t.Errorf("SortIPsByPreference()[%d] = %s, want %s", i, ip, want[i])
		}
	}
	if in[0].String() != "fe80::1" {
		t.Error("SortIPsByPreference modified its input")
	}
}
