package transport

import (
	"context"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

// proxyDialerFromEnv builds a DialContext that routes through HTTPS_PROXY/
// ALL_PROXY when set, supporting socks5:// in addition to http(s):// (the
// stdlib http.Transport only understands the latter natively).
func proxyDialerFromEnv() func(ctx context.Context, network, addr string) (net.Conn, error) {
	raw := proxyEnv()
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "socks5" {
		return nil
	}
	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
}
