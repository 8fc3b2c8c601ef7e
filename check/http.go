package check

import (
	"context"
	"net"
	"net/http"
	"strings"
)

func NewHTTPer(scheme string, src Source) *HTTPer {
	t := &HTTPer{scheme: scheme, src: src}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialTCP(ctx, t.src, addr)
		},
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	t.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return t
}

// HTTPer probes a host with a HEAD request. Any response, whatever its
// status, is a reply.
type HTTPer struct {
	scheme string
	src    Source
	client *http.Client
}

func (t *HTTPer) Attempt(ctx context.Context, host string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.url(host), nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (t *HTTPer) url(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return t.scheme + "://" + host
}
