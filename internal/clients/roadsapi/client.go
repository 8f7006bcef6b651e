// Package roadsapi implements the paged road-fetch collaborator against the
// roads-management HTTP API. The engine treats the remote service as
// external; this client only adapts its polygon query to the
// crossing.Fetcher contract, throttled by a single shared rate limiter.
package roadsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dpup/roadnet/internal/lib/crossing"
	"github.com/dpup/roadnet/internal/lib/geo"
)

// DefaultPageSize matches the maximum page size the roads API accepts.
const DefaultPageSize = 5000

// HTTPDoer abstracts HTTP execution for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches road segments within a polygon from the roads-management
// API, page by page.
type Client struct {
	apiKey     string
	baseURL    string
	pageSize   int
	httpClient HTTPDoer
	// limiter is shared across all concurrent callers of this client so the
	// configured ceiling applies globally, not per request.
	limiter *rate.Limiter
}

var _ crossing.Fetcher = (*Client)(nil)

// NewClient creates a roads API client. requestsPerSecond <= 0 disables
// throttling.
func NewClient(baseURL, apiKey string, requestsPerSecond float64) *Client {
	return NewClientWithHTTPDoer(baseURL, apiKey, requestsPerSecond, &http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewClientWithHTTPDoer creates a roads API client with a custom HTTP doer
func NewClientWithHTTPDoer(baseURL, apiKey string, requestsPerSecond float64, doer HTTPDoer) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		pageSize:   DefaultPageSize,
		httpClient: doer,
		limiter:    limiter,
	}
}

// FetchRoads returns one page of roads whose geometry falls inside the
// bounding box, as a polygon area filter query. An empty page token starts
// pagination.
func (c *Client) FetchRoads(ctx context.Context, bounds geo.Bounds, pageToken string) (*crossing.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestBody := map[string]interface{}{
		"geoAreaFilter": map[string]interface{}{
			"polygon": map[string]interface{}{
				"coordinates": boundsPolygon(bounds),
			},
		},
		"pageSize": c.pageSize,
	}
	if pageToken != "" {
		requestBody["pageToken"] = pageToken
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/roads:search", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limit exceeded: %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("roads API error %d: %s", resp.StatusCode, string(body))
	}

	var response roadsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return c.toPage(response), nil
}

// toPage converts the API payload to the detector's page shape, dropping
// roads without usable geometry.
func (c *Client) toPage(response roadsResponse) *crossing.Page {
	page := &crossing.Page{NextPageToken: response.NextPageToken}
	for _, road := range response.Roads {
		points := make([]geo.Point, 0, len(road.Coordinates))
		for _, coord := range road.Coordinates {
			points = append(points, geo.Point{
				Latitude:  coord.Location.Latitude,
				Longitude: coord.Location.Longitude,
			})
		}
		if len(points) < 2 {
			continue
		}
		page.Roads = append(page.Roads, crossing.Road{ID: road.ID, Points: points})
	}
	return page
}

// boundsPolygon renders a bounding box as a counter-clockwise closed ring of
// lat/lng objects, the polygon orientation the API requires.
func boundsPolygon(b geo.Bounds) []map[string]float64 {
	corners := []geo.Point{
		{Latitude: b.MinLat, Longitude: b.MinLng},
		{Latitude: b.MinLat, Longitude: b.MaxLng},
		{Latitude: b.MaxLat, Longitude: b.MaxLng},
		{Latitude: b.MaxLat, Longitude: b.MinLng},
		{Latitude: b.MinLat, Longitude: b.MinLng},
	}

	ring := make([]map[string]float64, len(corners))
	for i, p := range corners {
		ring[i] = map[string]float64{
			"latitude":  p.Latitude,
			"longitude": p.Longitude,
		}
	}
	return ring
}

// roadsResponse is the API page payload.
type roadsResponse struct {
	Roads         []roadPayload `json:"roads"`
	NextPageToken string        `json:"nextPageToken"`
}

// roadPayload is one road in the API response.
type roadPayload struct {
	ID          string            `json:"id"`
	Coordinates []roadCoordinates `json:"coordinates"`
}

// roadCoordinates wraps a single location in the API's nesting.
type roadCoordinates struct {
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}
