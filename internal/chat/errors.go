package chat

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// Cause classifies why a chat completion attempt did not succeed
type Cause string

const (
	CauseNone       Cause = ""
	CauseTimeout    Cause = "timeout"
	CauseTLS        Cause = "tls"
	CauseConnection Cause = "connection"
	CauseStatus     Cause = "status"
	CauseCanceled   Cause = "canceled"
	CauseUnexpected Cause = "unexpected"
)

// Label returns the cause as a metrics label, "success" for CauseNone
func (c Cause) Label() string {
	if c == CauseNone {
		return "success"
	}
	return string(c)
}

// Classify maps a transport error onto a Cause
func Classify(err error) Cause {
	switch {
	case err == nil:
		return CauseNone
	case errors.Is(err, context.Canceled):
		return CauseCanceled
	case errors.Is(err, context.DeadlineExceeded), IsTimeout(err):
		return CauseTimeout
	case IsTLSError(err):
		return CauseTLS
	case IsConnectionError(err):
		return CauseConnection
	default:
		return CauseUnexpected
	}
}

// IsTimeout checks if the error is a network timeout
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTLSError checks if the error came out of the TLS handshake or certificate
// verification. An https request answered by a plain HTTP server counts too.
func IsTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		opErr       *net.OpError
	)
	if errors.Is(err, http.ErrSchemeMismatch) {
		return true
	}
	// crypto/tls reports alerts as net.OpError with these ops
	if errors.As(err, &opErr) && (opErr.Op == "remote error" || opErr.Op == "local error") {
		return true
	}
	return errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}

// IsConnectionError checks if the error is a DNS, dial or other transport
// level failure
func IsConnectionError(err error) bool {
	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		urlErr *url.Error
	)
	return errors.As(err, &dnsErr) ||
		errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &urlErr)
}

// MentionsTLS reports whether the error text names SSL or TLS. Kept for
// errors whose type does not reveal a TLS failure.
func MentionsTLS(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SSL") || strings.Contains(msg, "TLS")
}
