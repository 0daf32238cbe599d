package remote

import (
	"context"
	"net/http"
	"time"
)

// HTTPProbe checks connectivity by requesting a health URL.
type HTTPProbe struct {
	url        string
	httpClient *http.Client
}

// NewHTTPProbe creates a probe for url with a short timeout.
func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProbe{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Online reports whether the health URL answered with a non-5xx status.
// Any answer at all, even 401, means the network path is up.
func (p *HTTPProbe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
