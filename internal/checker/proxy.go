package checker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// applyProxy routes t through proxyURL. HTTP(S) proxies go through
// Transport.Proxy; SOCKS5 proxies replace the dialer. An empty URL is a no-op.
func applyProxy(t *http.Transport, proxyURL string, base dialFunc) error {
	if proxyURL == "" {
		return nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		auth = &proxy.Auth{User: u.User.Username()}
		if p, ok := u.User.Password(); ok {
			auth.Password = p
		}
	}

	d, err := proxy.SOCKS5("tcp", u.Host, auth, baseDialer(base))
	if err != nil {
		return fmt.Errorf("socks5 proxy: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
		return nil
	}
	t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
	return nil
}

// baseDialer adapts a DialContext function to proxy.Dialer.
type baseDialer dialFunc

func (d baseDialer) Dial(network, addr string) (net.Conn, error) {
	return d(context.Background(), network, addr)
}

func (d baseDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d(ctx, network, addr)
}
