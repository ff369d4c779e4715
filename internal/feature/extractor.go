package feature

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/phishsense/phishsense/internal/probe"
	"github.com/phishsense/phishsense/internal/urlinfo"
)

// Known URL shortener domains.
var shortenerHosts = []string{
	"bit.ly", "goo.gl", "tinyurl.com", "ow.ly", "t.co", "is.gd", "buff.ly", "adf.ly",
}

// The probers the extractor consumes. Each resolves one external signal for
// a host under the context deadline and encodes every failure mode in its
// result value.
type (
	// DNSProber answers whether a domain resolves.
	DNSProber interface {
		Lookup(ctx context.Context, domain string) probe.DNSResult
	}
	// WhoisProber resolves domain registration age.
	WhoisProber interface {
		Lookup(ctx context.Context, domain string) probe.WhoisResult
	}
	// TLSProber inspects the certificate on port 443.
	TLSProber interface {
		Lookup(ctx context.Context, host string) probe.TLSResult
	}
	// PageProber fetches and scans the page body.
	PageProber interface {
		Lookup(ctx context.Context, pageURL string) probe.PageResult
	}
)

// Probes bundles the four probers an extractor runs per URL.
type Probes struct {
	DNS   DNSProber
	Whois WhoisProber
	TLS   TLSProber
	Page  PageProber
}

// Extractor maps one URL record to one feature vector. It holds no mutable
// state across URLs; concurrent Extract calls are independent.
type Extractor struct {
	probes       Probes
	probeTimeout time.Duration
}

// NewExtractor returns an Extractor running each probe under probeTimeout.
func NewExtractor(probes Probes, probeTimeout time.Duration) *Extractor {
	return &Extractor{probes: probes, probeTimeout: probeTimeout}
}

// Extract runs the probes for rec concurrently and computes the full
// 30-slot vector. A failed probe degrades only the slots depending on it,
// each set to the neutral value and recorded in the degraded set; the
// vector is always complete.
func (e *Extractor) Extract(ctx context.Context, rec urlinfo.Record) Extraction {
	var (
		dnsRes   probe.DNSResult
		whoisRes probe.WhoisResult
		tlsRes   probe.TLSResult
		pageRes  probe.PageResult
	)

	hasDomain := rec.RegisteredDomain != ""

	var wg sync.WaitGroup
	run := func(f func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
			defer cancel()
			f(pctx)
		}()
	}

	if hasDomain {
		run(func(ctx context.Context) { dnsRes = e.probes.DNS.Lookup(ctx, rec.RegisteredDomain) })
		run(func(ctx context.Context) { whoisRes = e.probes.Whois.Lookup(ctx, rec.RegisteredDomain) })
	}
	if rec.Scheme == "https" {
		run(func(ctx context.Context) { tlsRes = e.probes.TLS.Lookup(ctx, rec.Host) })
	}
	run(func(ctx context.Context) { pageRes = e.probes.Page.Lookup(ctx, rec.Raw) })
	wg.Wait()

	var ext Extraction
	v := &ext.Vector
	var degraded [NumSlots]bool
	degrade := func(slot int) {
		v[slot] = 0
		degraded[slot] = true
	}

	// URL-structure rules: pure string analysis, never probe-dependent.
	v[SlotHavingIPAddress] = flag(!rec.IsIPHost)
	v[SlotURLLength] = tiered(float64(len(rec.Raw)), 54, 75)
	v[SlotShorteningService] = flag(!isShortener(rec.Host))
	v[SlotHavingAtSymbol] = flag(!strings.Contains(rec.Raw, "@"))
	v[SlotDoubleSlashRedirecting] = flag(!strings.Contains(rec.Path, "//"))
	v[SlotPrefixSuffix] = flag(!strings.Contains(rec.Host, "-"))
	v[SlotHavingSubDomain] = subdomainScore(rec.SubdomainCount)
	v[SlotPort] = flag(rec.Port == "" || rec.Port == "80" || rec.Port == "443")
	v[SlotHTTPSToken] = flag(!strings.Contains(strings.ToLower(rec.Host), "https"))
	v[SlotAbnormalURL] = flag(hasDomain && rec.Scheme != "")

	// Connection-trust rules.
	switch {
	case rec.Scheme != "https":
		v[SlotSSLFinalState] = -1
	case tlsRes.Status != probe.StatusOK:
		degrade(SlotSSLFinalState)
	case !tlsRes.Valid:
		v[SlotSSLFinalState] = -1
	default:
		v[SlotSSLFinalState] = certAgeScore(tlsRes.DaysUntilExpiry)
	}

	switch {
	case !hasDomain:
		v[SlotDomainRegistrationLength] = -1
		v[SlotAgeOfDomain] = -1
	case whoisRes.Status != probe.StatusOK:
		degrade(SlotDomainRegistrationLength)
		degrade(SlotAgeOfDomain)
	default:
		age := domainAgeScore(whoisRes.AgeDays)
		v[SlotDomainRegistrationLength] = age
		v[SlotAgeOfDomain] = age
	}

	switch {
	case !hasDomain:
		v[SlotDNSRecord] = -1
	case dnsRes.Status != probe.StatusOK:
		degrade(SlotDNSRecord)
	default:
		v[SlotDNSRecord] = flag(dnsRes.HasRecord)
	}

	// Content-structure rules, all fed by one parse of the fetched page.
	if page := pageRes.Page; page != nil {
		v[SlotFavicon] = faviconScore(page, rec)
		v[SlotRequestURL] = tiered(externalPct(page.Resources, rec), 22, 61)
		v[SlotURLOfAnchor] = tiered(suspiciousAnchorPct(page.Anchors, rec), 31, 67)
		v[SlotLinksInTags] = tiered(externalPct(page.TagRefs, rec), 17, 81)
		v[SlotSFH] = flag(!hasEmptyFormHandler(page.FormActions))
		v[SlotSubmittingToEmail] = flag(!page.HasMailto)
		v[SlotOnMouseover] = flag(!page.HasOnMouseover)
		v[SlotRightClick] = flag(!page.HasRightClickScript)
		v[SlotPopupWindow] = flag(!page.HasPopupScript)
		v[SlotIframe] = flag(!page.HasIframe)
	} else {
		for _, slot := range contentSlots {
			degrade(slot)
		}
	}

	switch {
	case pageRes.StatusCode >= 300 && pageRes.StatusCode < 400:
		v[SlotRedirect] = -1
	case pageRes.StatusCode > 0 || pageRes.Status == probe.StatusOK:
		v[SlotRedirect] = 1
	default:
		degrade(SlotRedirect)
	}

	// Reputation rules: no ranking/index signal source is wired, so these
	// stay at their neutral contract value.
	v[SlotWebTraffic] = 0
	v[SlotPageRank] = 0
	v[SlotGoogleIndex] = 0
	v[SlotLinksPointingToPage] = 0
	v[SlotStatisticalReport] = 0

	for slot := range NumSlots {
		if degraded[slot] {
			ext.Degraded = append(ext.Degraded, slot)
		}
	}
	return ext
}

// contentSlots are the slots that depend on the HTML probe.
var contentSlots = []int{
	SlotFavicon, SlotRequestURL, SlotURLOfAnchor, SlotLinksInTags, SlotSFH,
	SlotSubmittingToEmail, SlotOnMouseover, SlotRightClick, SlotPopupWindow,
	SlotIframe,
}

func flag(legitimate bool) int8 {
	if legitimate {
		return 1
	}
	return -1
}

// tiered maps a measurement to 1 below low, 0 up to and including high,
// and -1 above it.
func tiered(value, low, high float64) int8 {
	switch {
	case value < low:
		return 1
	case value <= high:
		return 0
	default:
		return -1
	}
}

func subdomainScore(count int) int8 {
	switch {
	case count <= 1:
		return 1
	case count == 2:
		return 0
	default:
		return -1
	}
}

func certAgeScore(daysUntilExpiry int) int8 {
	switch {
	case daysUntilExpiry > 365:
		return 1
	case daysUntilExpiry > 30:
		return 0
	default:
		return -1
	}
}

func domainAgeScore(ageDays int) int8 {
	switch {
	case ageDays >= 365:
		return 1
	case ageDays >= 180:
		return 0
	default:
		return -1
	}
}

func isShortener(host string) bool {
	host = strings.ToLower(host)
	for _, s := range shortenerHosts {
		if strings.Contains(host, s) {
			return true
		}
	}
	return false
}

func faviconScore(page *probe.PageInfo, rec urlinfo.Record) int8 {
	if !page.HasFavicon {
		return 0
	}
	if page.FaviconHost != "" && !rec.SameRegisteredDomain(page.FaviconHost) {
		return -1
	}
	return 1
}

// externalPct returns the percentage of refs pointing outside the record's
// registered domain. Relative refs count as internal.
func externalPct(refs []probe.Ref, rec urlinfo.Record) float64 {
	if len(refs) == 0 {
		return 0
	}
	external := 0
	for _, ref := range refs {
		if ref.Host != "" && !rec.SameRegisteredDomain(ref.Host) {
			external++
		}
	}
	return float64(external) / float64(len(refs)) * 100
}

func suspiciousAnchorPct(anchors []probe.Ref, rec urlinfo.Record) float64 {
	if len(anchors) == 0 {
		return 0
	}
	suspicious := 0
	for _, a := range anchors {
		raw := strings.ToLower(strings.TrimSpace(a.Raw))
		switch {
		case strings.HasPrefix(raw, "#"),
			strings.HasPrefix(raw, "javascript:"),
			strings.HasPrefix(raw, "mailto:"):
			suspicious++
		case a.Host != "" && !rec.SameRegisteredDomain(a.Host):
			suspicious++
		}
	}
	return float64(suspicious) / float64(len(anchors)) * 100
}

func hasEmptyFormHandler(actions []string) bool {
	for _, action := range actions {
		trimmed := strings.TrimSpace(action)
		if trimmed == "" || strings.Contains(strings.ToLower(trimmed), "about:blank") {
			return true
		}
	}
	return false
}
