package cwmp

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/tr181-tools/tr181-go/pkg/cert"
	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// TLS constants.
const (
	// ALPNProtocol is the ALPN identifier negotiated on hook connections.
	ALPNProtocol = "tr181/1"

	// DefaultPort is dialed when the endpoint carries no explicit port.
	DefaultPort = 7547
)

// newTLSConfig builds the client TLS configuration from the optional
// per-device settings. Connections are TLS 1.3 only with no session
// resumption.
func newTLSConfig(serverName string, settings *hook.TLSSettings) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		ServerName: serverName,

		// ALPN protocol
		NextProtos: []string{ALPNProtocol},

		// Curve preferences for key exchange
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		// Session tickets disabled (no resumption)
		SessionTicketsDisabled: true,
	}

	if err := cert.ApplySettings(cfg, settings); err != nil {
		return nil, err
	}

	return cfg, nil
}

// verifyConnection checks the negotiated TLS version and ALPN protocol.
func verifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("TLS version %x is not TLS 1.3 (0x0304)", state.Version)
	}
	if state.NegotiatedProtocol != ALPNProtocol {
		return fmt.Errorf("ALPN protocol %q is not %q", state.NegotiatedProtocol, ALPNProtocol)
	}
	return nil
}

// withDefaultPort appends DefaultPort when the endpoint has no port of its
// own.
func withDefaultPort(endpoint string) string {
	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint
	}
	return net.JoinHostPort(endpoint, strconv.Itoa(DefaultPort))
}
