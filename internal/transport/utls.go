package transport

import (
	"context"
	"crypto/tls"
	"net"

	utls "github.com/refraction-networking/utls"
)

// utlsDialContext returns a DialTLSContext that performs a Chrome-shaped
// ClientHello instead of Go's native one. The Kiro/Gemini/Qwen OAuth
// endpoints are documented as reachable only from first-party clients;
// mimicking a common browser fingerprint reduces spurious TLS-layer
// rejections when this gateway's Go fingerprint would otherwise stand out.
func utlsDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		rawConn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		uconn := utls.UClient(rawConn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
		if err := uconn.HandshakeContext(ctx); err != nil {
			rawConn.Close()
			return nil, err
		}
		return uconn, nil
	}
}

// tlsConfigFor is kept for adapters that need a *tls.Config directly (e.g.
// to disable verification in tests); not used by the default client path.
func tlsConfigFor(serverName string) *tls.Config {
	return &tls.Config{ServerName: serverName}
}
