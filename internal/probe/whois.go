package probe

import (
	"context"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// WhoisProber resolves the registration age of a domain. WHOIS servers are
// slow and flaky public services, so the result is strictly best effort.
// One prober serves many concurrent lookups; it holds no per-lookup state.
type WhoisProber struct {
	query func(domain string, timeout time.Duration) (string, error)
	now   func() time.Time
}

// NewWhoisProber builds a prober.
func NewWhoisProber() *WhoisProber {
	return &WhoisProber{query: queryWhois, now: time.Now}
}

// queryWhois runs one raw WHOIS query. The whois client's timeout is a
// mutable field, so each lookup gets its own client instead of sharing one
// across workers.
func queryWhois(domain string, timeout time.Duration) (string, error) {
	client := whois.NewClient()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client.Whois(domain)
}

// Lookup queries WHOIS for the registered domain and parses out the creation
// date. A record without a usable creation date is a parse error: the age
// rules cannot run on it.
func (p *WhoisProber) Lookup(ctx context.Context, domain string) WhoisResult {
	if domain == "" {
		return WhoisResult{Status: StatusParseError}
	}

	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	type answer struct {
		raw string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		raw, err := p.query(domain, timeout)
		ch <- answer{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return WhoisResult{Status: StatusTimeout}
	case a := <-ch:
		if a.err != nil {
			return WhoisResult{Status: classify(ctx, a.err)}
		}
		return parseCreation(a.raw, p.now())
	}
}

func parseCreation(raw string, now time.Time) WhoisResult {
	info, err := whoisparser.Parse(raw)
	if err != nil || info.Domain == nil || info.Domain.CreatedDateInTime == nil {
		return WhoisResult{Status: StatusParseError}
	}
	created := *info.Domain.CreatedDateInTime
	age := int(now.Sub(created).Hours() / 24)
	if age < 0 {
		return WhoisResult{Status: StatusParseError}
	}
	return WhoisResult{Status: StatusOK, Created: created, AgeDays: age}
}
