package network

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// SRVService is the service label of Ogmios endpoint records:
// _ogmios._tcp.<domain>.
const SRVService = "ogmios"

const (
	defaultUpstream = "8.8.8.8:53"
	dnssecTimeout   = 10 * time.Second
	edns0BufSize    = 4096
)

// SRVResolver looks up SRV records. DNSSECResolver and net.Resolver both fit.
type SRVResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// DNSSECResolver resolves through an upstream recursive resolver and only
// accepts answers carrying the AD (authenticated data) flag.
type DNSSECResolver struct {
	Upstream string
	Timeout  time.Duration
}

var _ SRVResolver = (*DNSSECResolver)(nil)

// NewDNSSECResolver creates a DNSSECResolver. An empty upstream uses 8.8.8.8:53.
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &DNSSECResolver{Upstream: upstream, Timeout: dnssecTimeout}
}

func (r *DNSSECResolver) query(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true)

	client := &dns.Client{Timeout: r.Timeout}
	resp, _, err := client.ExchangeContext(ctx, msg, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s %s: %w", ErrDiscoveryFailed, name, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: query %s %s: rcode %s",
			ErrDiscoveryFailed, name, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for %s %s", ErrDNSSECFailed, name, dns.TypeToString[qtype])
	}
	return resp, nil
}

// LookupSRV queries _service._proto.name. The canonical name is always empty.
func (r *DNSSECResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	qname := fmt.Sprintf("_%s._%s.%s", service, proto, name)
	resp, err := r.query(ctx, qname, dns.TypeSRV)
	if err != nil {
		return "", nil, err
	}
	var srvs []*net.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			srvs = append(srvs, &net.SRV{
				Target:   strings.TrimSuffix(srv.Target, "."),
				Port:     srv.Port,
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	return "", srvs, nil
}

// DiscoverEndpoints returns Ogmios URLs advertised by a domain, ordered by
// priority then descending weight. Port 443 yields https, anything else http.
func DiscoverEndpoints(ctx context.Context, domain string, resolver SRVResolver) ([]string, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrDiscoveryFailed)
	}
	if resolver == nil {
		resolver = NewDNSSECResolver("")
	}
	_, addrs, err := resolver.LookupSRV(ctx, SRVService, "tcp", domain)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for _%s._tcp.%s", ErrDiscoveryFailed, SRVService, domain)
	}

	sort.SliceStable(addrs, func(i, j int) bool {
		if addrs[i].Priority != addrs[j].Priority {
			return addrs[i].Priority < addrs[j].Priority
		}
		return addrs[i].Weight > addrs[j].Weight
	})

	out := make([]string, len(addrs))
	for i, srv := range addrs {
		scheme := "http"
		if srv.Port == 443 {
			scheme = "https"
		}
		out[i] = fmt.Sprintf("%s://%s:%d", scheme, strings.TrimSuffix(srv.Target, "."), srv.Port)
	}
	return out, nil
}
