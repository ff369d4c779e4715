// Package urlinfo parses and validates raw URLs into the immutable record
// form the feature extractor works with.
package urlinfo

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/phishsense/phishsense/internal/platform/errs"
)

var hostChars = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)
var alphaTLD = regexp.MustCompile(`^[a-zA-Z]{2,}$`)

// Record is the parsed, validated form of one input URL. It is immutable
// once created; all fields are derived from Raw at construction time.
type Record struct {
	Raw              string
	Scheme           string
	Host             string // hostname without port
	Port             string // empty when the URL carries no explicit port
	Path             string
	IsIPHost         bool
	RegisteredDomain string // eTLD+1, empty for IP-literal hosts
	Subdomain        string // labels left of the registered domain
	SubdomainCount   int
}

// Parse validates rawURL and builds a Record. A URL with no scheme but a
// dotted host is given an http:// prefix, matching what users paste.
// Validation failures return an errs.AppError with Kind InvalidInput.
func Parse(rawURL string) (Record, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return Record{}, invalid("URL is empty", nil)
	}
	if !strings.Contains(raw, "//") && strings.Contains(raw, ".") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Record{}, invalid("URL could not be parsed", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Record{}, invalid("only http and https URLs are supported", nil)
	}

	host := u.Hostname()
	if host == "" {
		return Record{}, invalid("URL has no host", nil)
	}

	rec := Record{
		Raw:    raw,
		Scheme: u.Scheme,
		Host:   host,
		Port:   u.Port(),
		Path:   u.Path,
	}

	if _, err := netip.ParseAddr(host); err == nil {
		rec.IsIPHost = true
		return rec, nil
	}

	if !hostChars.MatchString(host) {
		return Record{}, invalid("host contains invalid characters", nil)
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.Contains(host, "..") {
		return Record{}, invalid("host has a malformed label", nil)
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return Record{}, invalid("host must contain at least one dot", nil)
	}
	if !alphaTLD.MatchString(labels[len(labels)-1]) {
		return Record{}, invalid("host has an invalid TLD", nil)
	}

	// Best effort: a host whose suffix is not in the public suffix list
	// still gets a registered domain from its last two labels.
	regDomain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		regDomain = strings.ToLower(strings.Join(labels[len(labels)-2:], "."))
	}
	rec.RegisteredDomain = regDomain

	lowerHost := strings.ToLower(host)
	if prefix, ok := strings.CutSuffix(lowerHost, "."+regDomain); ok {
		rec.Subdomain = prefix
		rec.SubdomainCount = strings.Count(prefix, ".") + 1
	}

	return rec, nil
}

// SameRegisteredDomain reports whether the given host shares the record's
// registered domain. Used to classify page resources as internal/external.
func (r Record) SameRegisteredDomain(host string) bool {
	if host == "" || r.RegisteredDomain == "" {
		return false
	}
	other := RegisteredDomain(host)
	return other != "" && strings.EqualFold(other, r.RegisteredDomain)
}

// RegisteredDomain returns the eTLD+1 of a hostname, or the last two labels
// when the public suffix list has no entry, or "" for IPs and bare labels.
func RegisteredDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func invalid(msg string, cause error) error {
	return &errs.AppError{Kind: errs.InvalidInput, Message: msg, Cause: cause}
}
