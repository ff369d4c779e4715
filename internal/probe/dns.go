package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNSProber answers whether a domain has A/AAAA records. It queries the
// first nameserver from /etc/resolv.conf directly and falls back to the
// system resolver when none is configured.
type DNSProber struct {
	client     *dns.Client
	nameserver string
	resolver   *net.Resolver
}

// NewDNSProber builds a prober. Per-exchange timeouts come from the caller's
// context, so the client itself carries only a generous upper bound.
func NewDNSProber() *DNSProber {
	p := &DNSProber{
		client:   &dns.Client{Net: "udp", Timeout: 5 * time.Second},
		resolver: net.DefaultResolver,
	}
	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
		p.nameserver = net.JoinHostPort(conf.Servers[0], conf.Port)
	}
	return p
}

// Lookup resolves A and AAAA records for domain under the context deadline.
// An authoritative empty answer (NXDOMAIN or no address records) is a
// successful probe with HasRecord false, not a failure.
func (p *DNSProber) Lookup(ctx context.Context, domain string) DNSResult {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return DNSResult{Status: StatusParseError}
	}

	if p.nameserver == "" {
		return p.lookupSystem(ctx, domain)
	}

	var ips []net.IP
	answered := false
	for _, qt := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(domain), qt)

		resp, _, err := p.client.ExchangeContext(ctx, msg, p.nameserver)
		if err != nil {
			if answered {
				break
			}
			return DNSResult{Status: classify(ctx, err)}
		}
		answered = true
		if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
			return DNSResult{Status: StatusUnreachable}
		}
		for _, ans := range resp.Answer {
			switch rr := ans.(type) {
			case *dns.A:
				ips = append(ips, rr.A)
			case *dns.AAAA:
				ips = append(ips, rr.AAAA)
			}
		}
	}

	return DNSResult{Status: StatusOK, Addrs: ips, HasRecord: len(ips) > 0}
}

func (p *DNSProber) lookupSystem(ctx context.Context, domain string) DNSResult {
	addrs, err := p.resolver.LookupIP(ctx, "ip", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return DNSResult{Status: StatusOK}
		}
		return DNSResult{Status: classify(ctx, err)}
	}
	return DNSResult{Status: StatusOK, Addrs: addrs, HasRecord: len(addrs) > 0}
}
