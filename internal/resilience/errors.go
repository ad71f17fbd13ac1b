package resilience

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"slices"
	"strings"
	"syscall"
)

// transientMessages match connection failures that reach callers only as
// text, typically after several layers of wrapping.
var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// TransientError wraps an error that is safe to retry (429, 5xx, connection failure).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError or a connection-level failure: a *url.Error from the HTTP
// transport, a network timeout, a reset/refused connection, or a DNS failure.
// Cancellation, certificate verification failures, and unsupported URL
// schemes are never transient; a per-request timeout is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || isCertificateError(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	// Anything the transport reports before a response arrives.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err == nil || !strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return slices.ContainsFunc(transientMessages, func(p string) bool {
		return strings.Contains(msg, p)
	})
}

// IsTransientHTTPStatus reports whether a response status should be retried:
// 429 Too Many Requests or any 5xx.
func IsTransientHTTPStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode <= 599)
}

// isCertificateError reports whether err is a TLS verification failure. A
// retry reaches the same certificate.
func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}
