// Package directions is a client for the Google Directions API, returning
// alternative routes as encoded polylines.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/saferoute/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Avoid values accepted by the API.
const (
	AvoidHighways = "highways"
	AvoidTolls    = "tolls"
	AvoidFerries  = "ferries"
)

// Client performs Directions API operations.
type Client interface {
	Routes(ctx context.Context, req Request) ([]Route, error)
}

// Request describes one directions query. Origin and Destination are
// addresses or "lat,lng" strings.
type Request struct {
	Origin      string
	Destination string
	Mode        string
	Departure   time.Time
	Avoid       string
}

// LatLng formats a coordinate pair for Origin or Destination.
func LatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
}

// Route is one alternative, with totals summed over its legs.
type Route struct {
	Summary         string
	Polyline        string
	DistanceMeters  float64
	DurationSeconds float64
}

type response struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Routes       []apiRoute `json:"routes"`
}

type apiRoute struct {
	Summary          string `json:"summary"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []struct {
		Distance struct {
			Value float64 `json:"value"`
		} `json:"distance"`
		Duration struct {
			Value float64 `json:"value"`
		} `json:"duration"`
	} `json:"legs"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithBreaker routes calls through b.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewClient creates a Directions API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker(5, 30*time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("directions", "routes")
	}
	return c
}

// Routes returns the alternatives for req. ZERO_RESULTS and NOT_FOUND yield
// an empty slice and no error.
func (c *httpClient) Routes(ctx context.Context, req Request) ([]Route, error) {
	return resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]Route, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Route, error) {
			return c.routes(ctx, req)
		})
	})
}

func (c *httpClient) routes(ctx context.Context, req Request) ([]Route, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "directions: rate limit")
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/directions/json?"+c.query(req).Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "directions: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "directions: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "directions: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("directions: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "directions: unmarshal response")
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		zap.L().Debug("directions: no routes",
			zap.String("status", result.Status),
			zap.String("origin", req.Origin),
			zap.String("destination", req.Destination),
		)
		return []Route{}, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, resilience.NewTransientError(
			eris.Errorf("directions: status %s: %s", result.Status, result.ErrorMessage), 0)
	default:
		return nil, eris.Errorf("directions: status %s: %s", result.Status, result.ErrorMessage)
	}

	routes := make([]Route, 0, len(result.Routes))
	for _, r := range result.Routes {
		out := Route{Summary: r.Summary, Polyline: r.OverviewPolyline.Points}
		for _, leg := range r.Legs {
			out.DistanceMeters += leg.Distance.Value
			out.DurationSeconds += leg.Duration.Value
		}
		routes = append(routes, out)
	}
	return routes, nil
}

func (c *httpClient) query(req Request) url.Values {
	q := url.Values{}
	q.Set("origin", req.Origin)
	q.Set("destination", req.Destination)
	q.Set("alternatives", "true")
	q.Set("key", c.apiKey)

	mode := req.Mode
	if mode == "" {
		mode = "driving"
	}
	q.Set("mode", mode)
	if req.Avoid != "" {
		q.Set("avoid", req.Avoid)
	}
	// departure_time must not be in the past.
	if !req.Departure.IsZero() && req.Departure.After(time.Now()) {
		q.Set("departure_time", fmt.Sprint(req.Departure.Unix()))
	}
	return q
}
