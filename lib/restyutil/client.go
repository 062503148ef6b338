package restyutil

import (
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type ClientOptions struct {
	BaseURL string
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests, 0 means unlimited.
	RequestsPerSecond float64
	// BypassCloudflare wraps the transport with cloudflare-bp, it fetches a
	// randomized user agent list on first use so it is off in tests.
	BypassCloudflare bool
	Tracer           trace.Tracer
	Output           InstrumentOutput
}

// NewScraperClient creates a resty client that looks like a desktop browser:
// cookie jar, browser user agent, optional throttling and tracing.
func NewScraperClient(opts ClientOptions) (*resty.Client, error) {
	client := resty.New()
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", BrowserUserAgent)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	InstrumentClient(client, opts.Tracer, opts.Output)
	return client, nil
}
