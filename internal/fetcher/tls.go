package fetcher

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/rotisserie/eris"
)

// NewTLSConfig returns a verifying TLS configuration rooted at the system
// certificate pool, extended with the PEM certificates in caBundlePath when
// it is non-empty.
func NewTLSConfig(caBundlePath string) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	if caBundlePath != "" {
		pem, err := os.ReadFile(caBundlePath)
		if err != nil {
			return nil, eris.Wrapf(err, "tls: read ca bundle %s", caBundlePath)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, eris.Errorf("tls: no certificates found in %s", caBundlePath)
		}
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
