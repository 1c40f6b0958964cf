package chambre

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"parlwatch-backend/lib/restyutil"
	"parlwatch-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/chambre")

// DefaultBaseUrl is the public site of the Chamber of Representatives.
const DefaultBaseUrl = "https://www.chambredesrepresentants.ma"

// ListingPath is the paginated bills listing underneath the base url.
const ListingPath = "/fr/legislation/projets-de-loi"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ProxyEndpoint struct {
	Http  string `json:"http"`
	Https string `json:"https"`
}

type ClientOptions struct {
	BaseUrl        string
	RequestTimeout time.Duration
	// number of retries after the initial attempt
	RetryAttempts int
	// fixed pause before each retry, defaults to 2s
	RetryBackoff  time.Duration
	Proxies       []ProxyEndpoint
	ProxyRotation bool
	// shared across every caller of the client, owned by whoever
	// drives the run; enforces the site-wide politeness delay
	Limiter *rate.Limiter
	// when set, every fetched page is dumped here for extraction
	// debugging
	DebugDumpDir string
}

// Client fetches pages from the chamber site with bounded retries,
// sequential proxy cycling and a shared rate limit.
type Client struct {
	BaseUrl *url.URL
	http    *resty.Client

	retryAttempts int
	backoff       time.Duration

	mu         sync.Mutex
	proxies    []ProxyEndpoint
	rotate     bool
	proxyIndex int
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", defaultUserAgent)
	client.SetHeader("accept-language", "fr,fr-FR;q=0.9,en;q=0.5")
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	if opts.Limiter != nil {
		limiter := opts.Limiter
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, "scrapers/chambre/http")

	if opts.DebugDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DebugDumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.InstrumentDump(client, output)
	}

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second * 2
	}

	c := &Client{
		BaseUrl:       baseUrl,
		http:          client,
		retryAttempts: opts.RetryAttempts,
		backoff:       backoff,
		proxies:       opts.Proxies,
		rotate:        opts.ProxyRotation && len(opts.Proxies) > 0,
	}
	if len(c.proxies) > 0 {
		c.http.SetProxy(c.proxies[0].Http)
		slog.Info("using proxy", "proxy", c.proxies[0].Http)
	}
	return c, nil
}

// rotateProxy advances to the next pool entry. One slot per cycle is a
// direct connection, so an entirely dead pool still makes progress.
func (c *Client) rotateProxy() {
	if !c.rotate {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.proxyIndex++
	slot := c.proxyIndex % (len(c.proxies) + 1)
	if slot == len(c.proxies) {
		c.http.RemoveProxy()
		slog.Warn("proxy pool cycled, falling back to direct connection")
		return
	}
	next := c.proxies[slot]
	c.http.SetProxy(next.Http)
	slog.Debug("rotated to proxy", "proxy", next.Http)
}

func retryable(status int) bool {
	return status >= 500
}

// Fetch retrieves target (absolute, or relative to the base url) with
// the configured query params. Transport failures and 5xx responses are
// retried up to RetryAttempts times; each failure rotates the proxy
// pool. Exhaustion returns a *NetworkError.
func (c *Client) Fetch(ctx context.Context, target string, params url.Values) ([]byte, int, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()

	attempts := c.retryAttempts + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.rotateProxy()

			// fixed backoff with a little jitter
			wait := c.backoff + time.Duration(rand.Int63n(int64(time.Millisecond*100)))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, 0, &NetworkError{Url: target, Attempts: attempt, LastCause: ctx.Err()}
			case <-timer.C:
			}
		}

		req := c.http.R().SetContext(ctx)
		if params != nil {
			req.SetQueryParamsFromValues(params)
		}
		res, err := req.Get(target)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, 0, &NetworkError{Url: target, Attempts: attempt + 1, LastCause: err}
			}
			lastErr = err
			slog.Warn("request failed",
				"url", target,
				"attempt", attempt+1,
				"max_attempts", attempts,
				"err", err)
			continue
		}
		if retryable(res.StatusCode()) {
			lastErr = errors.New(res.Status())
			slog.Warn("request failed",
				"url", target,
				"attempt", attempt+1,
				"max_attempts", attempts,
				"status", res.Status())
			continue
		}
		return res.Body(), res.StatusCode(), nil
	}

	return nil, 0, &NetworkError{Url: target, Attempts: attempts, LastCause: lastErr}
}

// FetchDocument is Fetch followed by an HTML parse.
func (c *Client) FetchDocument(ctx context.Context, target string, params url.Values) (*goquery.Document, error) {
	body, _, err := c.Fetch(ctx, target, params)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, &ExtractionError{Url: target, Reason: err.Error()}
	}
	return doc, nil
}
