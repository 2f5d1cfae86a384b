// Package safehttp builds the outbound HTTP client used to reach payment gateways.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

const defaultConnectTimeout = 5 * time.Second

// NewTransport returns a transport honoring cfg's connect timeout. With
// DenyPrivateNetworks set it rejects connections to private or loopback IP ranges to
// reduce SSRF risk.
func NewTransport(cfg config.HTTPConfig) *http.Transport {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = dialer.DialContext
	if cfg.DenyPrivateNetworks {
		t.DialContext = denyPrivate(dialer)
	}
	return t
}

// NewClient wraps NewTransport with OpenTelemetry instrumentation and cfg's overall
// request timeout.
func NewClient(cfg config.HTTPConfig) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(NewTransport(cfg)),
		Timeout:   cfg.Timeout,
	}
}

func denyPrivate(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			conn.Close()
			return nil, fmt.Errorf("access to private IP %s is denied", ip)
		}

		return conn, nil
	}
}
