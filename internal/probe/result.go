// Package probe implements the external signal lookups feeding the feature
// extractor: DNS existence, WHOIS registration age, TLS certificate state,
// and page content. Every probe returns a tagged outcome before its deadline
// elapses; failures are values, never panics, and never escape as errors.
package probe

import (
	"context"
	"errors"
	"net"
	"time"
)

// Status tags the outcome of a single probe.
type Status int

const (
	// StatusOK means the probe produced a usable value.
	StatusOK Status = iota
	// StatusTimeout means the probe deadline elapsed first.
	StatusTimeout
	// StatusUnreachable means a network or protocol error prevented the lookup.
	StatusUnreachable
	// StatusParseError means the remote answered with something unusable.
	StatusParseError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusUnreachable:
		return "unreachable"
	case StatusParseError:
		return "parse_error"
	}
	return "unknown"
}

// classify maps a lookup error to a probe status, preferring the context
// deadline over whatever error the transport surfaced alongside it.
func classify(ctx context.Context, err error) Status {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return StatusTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return StatusTimeout
	}
	return StatusUnreachable
}

// DNSResult is the outcome of the DNS existence probe.
type DNSResult struct {
	Status    Status
	Addrs     []net.IP
	HasRecord bool
}

// WhoisResult is the outcome of the WHOIS registration probe.
type WhoisResult struct {
	Status  Status
	Created time.Time
	AgeDays int
}

// TLSResult is the outcome of the certificate probe. Valid is false when the
// handshake completed but the presented chain failed verification.
type TLSResult struct {
	Status          Status
	Valid           bool
	NotAfter        time.Time
	DaysUntilExpiry int
}

// PageResult is the outcome of the HTML probe. Page is nil unless the fetch
// returned 200 and the body parsed; StatusCode is set whenever the server
// answered at all, so redirect detection survives a missing body.
type PageResult struct {
	Status     Status
	StatusCode int
	Page       *PageInfo
}
