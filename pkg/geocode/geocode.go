// Package geocode resolves free-text addresses against a Nominatim-compatible
// search API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"foodshare/pkg/models"
)

var ErrNoResults = errors.New("geocode: no results")

type Geocoder interface {
	Search(ctx context.Context, text string) ([]models.Location, error)
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient builds a client allowed rps requests per second (Nominatim's
// public policy is 1).
func NewClient(baseURL, userAgent string, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 5 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *Client) Search(ctx context.Context, text string) ([]models.Location, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", text)
	body, err := c.get(ctx, "/search", q)
	if err != nil {
		return nil, err
	}

	results := gjson.ParseBytes(body)
	if !results.IsArray() {
		return nil, fmt.Errorf("geocode: unexpected search response")
	}

	var locations []models.Location
	results.ForEach(func(_, item gjson.Result) bool {
		lat, errLat := strconv.ParseFloat(item.Get("lat").String(), 64)
		lng, errLng := strconv.ParseFloat(item.Get("lon").String(), 64)
		if errLat != nil || errLng != nil {
			return true
		}
		address := item.Get("display_name").String()
		if address == "" {
			address = text
		}
		locations = append(locations, models.Location{Lat: lat, Lng: lng, Address: address})
		return true
	})
	if len(locations) == 0 {
		return nil, ErrNoResults
	}
	return locations, nil
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	body, err := c.get(ctx, "/reverse", q)
	if err != nil {
		return "", err
	}

	address := gjson.GetBytes(body, "display_name").String()
	if address == "" {
		return "", ErrNoResults
	}
	return address, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
