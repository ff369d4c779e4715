package feature

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/phishsense/phishsense/internal/probe"
	"github.com/phishsense/phishsense/internal/urlinfo"
)

type fakeDNS struct{ res probe.DNSResult }

func (f fakeDNS) Lookup(context.Context, string) probe.DNSResult { return f.res }

type fakeWhois struct{ res probe.WhoisResult }

func (f fakeWhois) Lookup(context.Context, string) probe.WhoisResult { return f.res }

type fakeTLS struct{ res probe.TLSResult }

func (f fakeTLS) Lookup(context.Context, string) probe.TLSResult { return f.res }

type fakePage struct{ res probe.PageResult }

func (f fakePage) Lookup(context.Context, string) probe.PageResult { return f.res }

func healthyProbes() Probes {
	return Probes{
		DNS:   fakeDNS{probe.DNSResult{Status: probe.StatusOK, HasRecord: true}},
		Whois: fakeWhois{probe.WhoisResult{Status: probe.StatusOK, AgeDays: 4000}},
		TLS:   fakeTLS{probe.TLSResult{Status: probe.StatusOK, Valid: true, DaysUntilExpiry: 400}},
		Page: fakePage{probe.PageResult{
			Status:     probe.StatusOK,
			StatusCode: 200,
			Page:       &probe.PageInfo{},
		}},
	}
}

func mustRecord(t *testing.T, raw string) urlinfo.Record {
	t.Helper()
	rec, err := urlinfo.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return rec
}

func TestExtract_HealthySite(t *testing.T) {
	e := NewExtractor(healthyProbes(), time.Second)
	rec := mustRecord(t, "https://example.com/login")

	ext := e.Extract(context.Background(), rec)
	if len(ext.Degraded) != 0 {
		t.Fatalf("Degraded = %v, want none", ext.DegradedNames())
	}

	v := ext.Vector
	checks := []struct {
		slot int
		want int8
	}{
		{SlotHavingIPAddress, 1},
		{SlotURLLength, 1},
		{SlotShorteningService, 1},
		{SlotHavingAtSymbol, 1},
		{SlotDoubleSlashRedirecting, 1},
		{SlotPrefixSuffix, 1},
		{SlotHavingSubDomain, 1},
		{SlotSSLFinalState, 1},
		{SlotDomainRegistrationLength, 1},
		{SlotPort, 1},
		{SlotHTTPSToken, 1},
		{SlotAbnormalURL, 1},
		{SlotRedirect, 1},
		{SlotAgeOfDomain, 1},
		{SlotDNSRecord, 1},
		{SlotWebTraffic, 0},
		{SlotPageRank, 0},
		{SlotGoogleIndex, 0},
		{SlotLinksPointingToPage, 0},
		{SlotStatisticalReport, 0},
	}
	for _, c := range checks {
		if v[c.slot] != c.want {
			t.Errorf("%s = %d, want %d", Names[c.slot], v[c.slot], c.want)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(healthyProbes(), time.Second)
	rec := mustRecord(t, "https://shop.example.co.uk/checkout")

	first := e.Extract(context.Background(), rec)
	for range 5 {
		again := e.Extract(context.Background(), rec)
		if again.Vector != first.Vector {
			t.Fatalf("vector changed between runs: %v vs %v", again.Vector, first.Vector)
		}
		if !slices.Equal(again.Degraded, first.Degraded) {
			t.Fatalf("degraded set changed between runs: %v vs %v", again.Degraded, first.Degraded)
		}
	}
}

func TestExtract_IPHostWithAtSymbol(t *testing.T) {
	e := NewExtractor(healthyProbes(), time.Second)
	rec := mustRecord(t, "http://192.168.0.1/@login")

	ext := e.Extract(context.Background(), rec)
	v := ext.Vector

	if v[SlotHavingIPAddress] != -1 {
		t.Errorf("%s = %d, want -1", Names[SlotHavingIPAddress], v[SlotHavingIPAddress])
	}
	if v[SlotHavingAtSymbol] != -1 {
		t.Errorf("%s = %d, want -1", Names[SlotHavingAtSymbol], v[SlotHavingAtSymbol])
	}

	// An IP literal has no registered domain: the domain rules score -1 as a
	// computed value rather than degrading.
	for _, slot := range []int{SlotDomainRegistrationLength, SlotAgeOfDomain, SlotDNSRecord, SlotSSLFinalState, SlotAbnormalURL} {
		if v[slot] != -1 {
			t.Errorf("%s = %d, want -1", Names[slot], v[slot])
		}
		if slices.Contains(ext.Degraded, slot) {
			t.Errorf("%s marked degraded, want computed", Names[slot])
		}
	}
}

func TestExtract_PageFailureDegradesOnlyContentSlots(t *testing.T) {
	probes := healthyProbes()
	probes.Page = fakePage{probe.PageResult{Status: probe.StatusTimeout}}
	e := NewExtractor(probes, time.Second)
	rec := mustRecord(t, "https://example.com")

	ext := e.Extract(context.Background(), rec)

	wantDegraded := append(slices.Clone(contentSlots), SlotRedirect)
	slices.Sort(wantDegraded)
	if !slices.Equal(ext.Degraded, wantDegraded) {
		t.Errorf("Degraded = %v, want %v", ext.Degraded, wantDegraded)
	}
	for _, slot := range ext.Degraded {
		if ext.Vector[slot] != 0 {
			t.Errorf("%s = %d, want neutral 0", Names[slot], ext.Vector[slot])
		}
	}
	// Probe-independent slots still computed.
	if ext.Vector[SlotDNSRecord] != 1 {
		t.Errorf("%s = %d, want 1", Names[SlotDNSRecord], ext.Vector[SlotDNSRecord])
	}
	if ext.Vector[SlotSSLFinalState] != 1 {
		t.Errorf("%s = %d, want 1", Names[SlotSSLFinalState], ext.Vector[SlotSSLFinalState])
	}
}

func TestExtract_DNSBehavior(t *testing.T) {
	tests := []struct {
		name         string
		res          probe.DNSResult
		want         int8
		wantDegraded bool
	}{
		{
			name: "record exists",
			res:  probe.DNSResult{Status: probe.StatusOK, HasRecord: true},
			want: 1,
		},
		{
			name: "nxdomain is an answer",
			res:  probe.DNSResult{Status: probe.StatusOK, HasRecord: false},
			want: -1,
		},
		{
			name:         "resolver timeout degrades",
			res:          probe.DNSResult{Status: probe.StatusTimeout},
			want:         0,
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probes := healthyProbes()
			probes.DNS = fakeDNS{tt.res}
			e := NewExtractor(probes, time.Second)
			ext := e.Extract(context.Background(), mustRecord(t, "https://example.com"))

			if got := ext.Vector[SlotDNSRecord]; got != tt.want {
				t.Errorf("%s = %d, want %d", Names[SlotDNSRecord], got, tt.want)
			}
			if got := slices.Contains(ext.Degraded, SlotDNSRecord); got != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", got, tt.wantDegraded)
			}
		})
	}
}

func TestExtract_TLSBehavior(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		res          probe.TLSResult
		want         int8
		wantDegraded bool
	}{
		{
			name: "long lived valid cert",
			raw:  "https://example.com",
			res:  probe.TLSResult{Status: probe.StatusOK, Valid: true, DaysUntilExpiry: 400},
			want: 1,
		},
		{
			name: "short lived valid cert",
			raw:  "https://example.com",
			res:  probe.TLSResult{Status: probe.StatusOK, Valid: true, DaysUntilExpiry: 60},
			want: 0,
		},
		{
			name: "nearly expired cert",
			raw:  "https://example.com",
			res:  probe.TLSResult{Status: probe.StatusOK, Valid: true, DaysUntilExpiry: 5},
			want: -1,
		},
		{
			name: "untrusted chain",
			raw:  "https://example.com",
			res:  probe.TLSResult{Status: probe.StatusOK, Valid: false},
			want: -1,
		},
		{
			name: "plain http",
			raw:  "http://example.com",
			want: -1,
		},
		{
			name:         "handshake timeout degrades",
			raw:          "https://example.com",
			res:          probe.TLSResult{Status: probe.StatusTimeout},
			want:         0,
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probes := healthyProbes()
			probes.TLS = fakeTLS{tt.res}
			e := NewExtractor(probes, time.Second)
			ext := e.Extract(context.Background(), mustRecord(t, tt.raw))

			if got := ext.Vector[SlotSSLFinalState]; got != tt.want {
				t.Errorf("%s = %d, want %d", Names[SlotSSLFinalState], got, tt.want)
			}
			if got := slices.Contains(ext.Degraded, SlotSSLFinalState); got != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", got, tt.wantDegraded)
			}
		})
	}
}

func TestExtract_RedirectBehavior(t *testing.T) {
	tests := []struct {
		name         string
		res          probe.PageResult
		want         int8
		wantDegraded bool
	}{
		{
			name: "direct answer",
			res:  probe.PageResult{Status: probe.StatusOK, StatusCode: 200, Page: &probe.PageInfo{}},
			want: 1,
		},
		{
			name: "stuck on a redirect",
			res:  probe.PageResult{Status: probe.StatusOK, StatusCode: 302},
			want: -1,
		},
		{
			name: "server error still answered",
			res:  probe.PageResult{Status: probe.StatusOK, StatusCode: 503},
			want: 1,
		},
		{
			name:         "no answer degrades",
			res:          probe.PageResult{Status: probe.StatusUnreachable},
			want:         0,
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probes := healthyProbes()
			probes.Page = fakePage{tt.res}
			e := NewExtractor(probes, time.Second)
			ext := e.Extract(context.Background(), mustRecord(t, "https://example.com"))

			if got := ext.Vector[SlotRedirect]; got != tt.want {
				t.Errorf("%s = %d, want %d", Names[SlotRedirect], got, tt.want)
			}
			if got := slices.Contains(ext.Degraded, SlotRedirect); got != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", got, tt.wantDegraded)
			}
		})
	}
}

func TestExtract_ContentRules(t *testing.T) {
	page := &probe.PageInfo{
		HasFavicon:  true,
		FaviconHost: "cdn.elsewhere.com",
		Resources: []probe.Ref{
			{Raw: "https://a.elsewhere.com/x.png", Host: "a.elsewhere.com"},
			{Raw: "https://b.elsewhere.com/y.js", Host: "b.elsewhere.com"},
			{Raw: "/local.css", Host: "example.com"},
		},
		Anchors: []probe.Ref{
			{Raw: "#", Host: "example.com"},
			{Raw: "javascript:void(0)", Host: ""},
			{Raw: "https://phish.elsewhere.com", Host: "phish.elsewhere.com"},
			{Raw: "/about", Host: "example.com"},
		},
		TagRefs: []probe.Ref{
			{Raw: "https://c.elsewhere.com/t.js", Host: "c.elsewhere.com"},
		},
		FormActions:         []string{""},
		HasMailto:           true,
		HasOnMouseover:      true,
		HasRightClickScript: true,
		HasPopupScript:      true,
		HasIframe:           true,
	}

	probes := healthyProbes()
	probes.Page = fakePage{probe.PageResult{Status: probe.StatusOK, StatusCode: 200, Page: page}}
	e := NewExtractor(probes, time.Second)
	ext := e.Extract(context.Background(), mustRecord(t, "https://example.com"))
	v := ext.Vector

	checks := []struct {
		slot int
		want int8
	}{
		{SlotFavicon, -1},     // favicon served off-domain
		{SlotRequestURL, -1},  // 2 of 3 resources external = 66.7%
		{SlotURLOfAnchor, -1}, // 3 of 4 anchors suspicious = 75%
		{SlotLinksInTags, -1}, // the only tag ref is external
		{SlotSFH, -1},
		{SlotSubmittingToEmail, -1},
		{SlotOnMouseover, -1},
		{SlotRightClick, -1},
		{SlotPopupWindow, -1},
		{SlotIframe, -1},
	}
	for _, c := range checks {
		if v[c.slot] != c.want {
			t.Errorf("%s = %d, want %d", Names[c.slot], v[c.slot], c.want)
		}
	}
}

func TestTiered(t *testing.T) {
	tests := []struct {
		value float64
		want  int8
	}{
		{10, 1},
		{53.9, 1},
		{54, 0},
		{75, 0},
		{75.1, -1},
		{200, -1},
	}
	for _, tt := range tests {
		if got := tiered(tt.value, 54, 75); got != tt.want {
			t.Errorf("tiered(%g, 54, 75) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestSubdomainScore(t *testing.T) {
	tests := []struct {
		count int
		want  int8
	}{
		{0, 1},
		{1, 1},
		{2, 0},
		{3, -1},
		{5, -1},
	}
	for _, tt := range tests {
		if got := subdomainScore(tt.count); got != tt.want {
			t.Errorf("subdomainScore(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestIsShortener(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"bit.ly", true},
		{"BIT.LY", true},
		{"tinyurl.com", true},
		{"t.co", true},
		{"example.com", false},
	}
	for _, tt := range tests {
		if got := isShortener(tt.host); got != tt.want {
			t.Errorf("isShortener(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestHasEmptyFormHandler(t *testing.T) {
	tests := []struct {
		name    string
		actions []string
		want    bool
	}{
		{name: "no forms", actions: nil, want: false},
		{name: "real action", actions: []string{"/submit"}, want: false},
		{name: "empty action", actions: []string{""}, want: true},
		{name: "whitespace action", actions: []string{"  "}, want: true},
		{name: "about blank", actions: []string{"about:blank"}, want: true},
		{name: "mixed", actions: []string{"/submit", ""}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasEmptyFormHandler(tt.actions); got != tt.want {
				t.Errorf("hasEmptyFormHandler(%v) = %v, want %v", tt.actions, got, tt.want)
			}
		})
	}
}

func TestDegradedNames(t *testing.T) {
	ext := Extraction{Degraded: []int{SlotFavicon, SlotRedirect}}
	want := []string{"Favicon", "Redirect"}
	if got := ext.DegradedNames(); !slices.Equal(got, want) {
		t.Errorf("DegradedNames() = %v, want %v", got, want)
	}

	if got := (Extraction{}).DegradedNames(); got != nil {
		t.Errorf("DegradedNames() = %v, want nil", got)
	}
}
