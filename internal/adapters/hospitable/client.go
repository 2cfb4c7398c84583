// Package hospitable pulls listings from the Hospitable channel manager.
package hospitable

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public v2 API.
const DefaultBaseURL = "https://public.api.hospitable.com/v2"

// Client implements ports.ListingSource over the Hospitable REST API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
	limiter *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithDial replaces the dialer, e.g. with an in-memory listener in tests.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// WithRateLimit overrides the default ten requests per second.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// NewClient creates a listing client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "staymap-sync",
			MaxConnsPerHost:     4,
			MaxIdleConnDuration: 30 * time.Second,
			Dial: func(addr string) (net.Conn, error) {
				return fasthttp.DialTimeout(addr, timeout)
			},
		},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type listingPage struct {
	Data []listingJSON `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
	} `json:"meta"`
}

type listingJSON struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Bedrooms  int      `json:"bedrooms"`
	MaxGuests int      `json:"max_guests"`
	BasePrice float64  `json:"base_price"`
	Currency  string   `json:"currency"`
	Listed    *bool    `json:"listed"`
	Status    string   `json:"status"`
}

func (l listingJSON) toDomain() domain.Listing {
	listed := strings.EqualFold(l.Status, "active") || strings.EqualFold(l.Status, "listed")
	if l.Listed != nil {
		listed = *l.Listed
	}
	return domain.Listing{
		ExternalID: l.ID,
		Name:       l.Name,
		City:       l.City,
		Lat:        l.Latitude,
		Lng:        l.Longitude,
		Bedrooms:   l.Bedrooms,
		Guests:     l.MaxGuests,
		Price:      l.BasePrice,
		Currency:   l.Currency,
		Listed:     listed,
	}
}

// ListListings fetches one page of listings. Pages start at 1.
func (c *Client) ListListings(ctx context.Context, page, perPage int) ([]domain.Listing, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/properties")
	req.URI().QueryArgs().Set("page", strconv.Itoa(page))
	req.URI().QueryArgs().Set("per_page", strconv.Itoa(perPage))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, false, fmt.Errorf("hospitable list page %d: %w", page, err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		body := resp.Body()
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, false, fmt.Errorf("hospitable list page %d: status %d: %s", page, code, body)
	}

	var out listingPage
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, false, fmt.Errorf("hospitable decode page %d: %w", page, err)
	}

	listings := make([]domain.Listing, 0, len(out.Data))
	for _, l := range out.Data {
		listings = append(listings, l.toDomain())
	}
	hasMore := out.Meta.LastPage > 0 && out.Meta.CurrentPage < out.Meta.LastPage
	return listings, hasMore, nil
}
