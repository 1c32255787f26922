package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

var now = time.Now

// DefaultTimeout caps a single real probe.
const DefaultTimeout = 10 * time.Second

// HTTPProber fetches the descriptor URL and classifies the response.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober. A nil client gets a default one that
// follows redirects; timeout <= 0 means DefaultTimeout.
func NewHTTPProber(client *http.Client, timeout time.Duration) *HTTPProber {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{client: client, timeout: timeout}
}

// Probe implements Prober. 2xx-3xx is healthy, any other status degraded,
// transport failures and timeouts are errors.
func (p *HTTPProber) Probe(ctx context.Context, svc models.ServiceDescriptor) models.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, svc.RequestMethod(), svc.URL, nil)
	if err != nil {
		return failure(&ProbeError{Kind: ErrProbeException, Err: err}, 0)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	elapsed := elapsedMs(start)
	if err != nil {
		return failure(&ProbeError{Kind: ErrTransport, Err: err}, elapsed)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return models.ProbeResult{
			Status:     models.StatusHealthy,
			LatencyMs:  elapsed,
			StatusCode: resp.StatusCode,
			CheckedAt:  now(),
		}
	}

	res := failure(&ProbeError{
		Kind: ErrHTTPDegraded,
		Err:  fmt.Errorf("HTTP %d", resp.StatusCode),
	}, elapsed)
	res.StatusCode = resp.StatusCode
	return res
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Round(time.Millisecond).Milliseconds()
}
