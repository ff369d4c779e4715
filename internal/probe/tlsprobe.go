package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"time"
)

// TLSProber inspects the certificate a host presents on port 443.
type TLSProber struct {
	dialer *tls.Dialer
	now    func() time.Time
}

// NewTLSProber builds a prober that refuses connections to private and
// reserved address ranges, like every other outbound probe.
func NewTLSProber() *TLSProber {
	return &TLSProber{
		dialer: &tls.Dialer{NetDialer: safeDialer()},
		now:    time.Now,
	}
}

// Lookup performs a TLS handshake with host:443 under the context deadline.
// A handshake that completes but fails chain verification is a successful
// probe reporting an invalid certificate; only transport-level failures are
// Unreachable.
func (p *TLSProber) Lookup(ctx context.Context, host string) TLSResult {
	if host == "" {
		return TLSResult{Status: StatusParseError}
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		if isCertError(err) {
			return TLSResult{Status: StatusOK, Valid: false}
		}
		return TLSResult{Status: classify(ctx, err)}
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return TLSResult{Status: StatusParseError}
	}

	notAfter := state.PeerCertificates[0].NotAfter
	days := int(notAfter.Sub(p.now()).Hours() / 24)
	return TLSResult{
		Status:          StatusOK,
		Valid:           days > 0,
		NotAfter:        notAfter,
		DaysUntilExpiry: days,
	}
}

func isCertError(err error) bool {
	var (
		unknownAuth x509.UnknownAuthorityError
		certInvalid x509.CertificateInvalidError
		hostname    x509.HostnameError
		certVerify  *tls.CertificateVerificationError
	)
	return errors.As(err, &certVerify) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &certInvalid) ||
		errors.As(err, &hostname)
}
