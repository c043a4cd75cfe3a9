// Package cert loads TLS material for device connections and generates
// throwaway certificates for loopback listeners.
//
// Protocol hooks build their own tls.Config (version pins, ALPN, server
// name) and call ApplySettings to layer the per-device trust settings on
// top. Test servers use SelfSigned so no fixture files are needed.
package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// ApplySettings loads the optional per-device TLS settings into cfg: the
// CA bundle as the root pool, the client keypair, and the skip-verify
// flag. A nil settings leaves cfg untouched.
func ApplySettings(cfg *tls.Config, settings *hook.TLSSettings) error {
	if settings == nil {
		return nil
	}

	if settings.CAFile != "" {
		pemData, err := os.ReadFile(settings.CAFile)
		if err != nil {
			return fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return fmt.Errorf("no certificates found in %s", settings.CAFile)
		}
		cfg.RootCAs = pool
	}

	if settings.CertFile != "" || settings.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	cfg.InsecureSkipVerify = settings.InsecureSkipVerify

	return nil
}

// SelfSigned builds a throwaway ECDSA certificate for a loopback
// listener, valid for localhost and the loopback addresses. Clients
// connect with InsecureSkipVerify.
func SelfSigned(commonName string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
