package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"kshetranetra/models"

	"github.com/apex/log"
)

const (
	// UserAgent is required by Nominatim usage policy
	UserAgent = "KshetraNetra/1.0 (satellite change reports)"
	// Rate limit: 1 request per second for Nominatim
	minRequestInterval = time.Second
)

// Client handles Nominatim forward geocoding with rate limiting
type Client struct {
	baseURL       string
	httpClient    *http.Client
	lastRequest   time.Time
	rateLimitLock sync.Mutex
}

// NewClient creates a new geocoding client. timeout bounds every search call;
// there is no retry, failed searches are simply reported back to the user.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Place is a single geocoding result
type Place struct {
	Lat     float64
	Lon     float64
	Address string
}

// searchResult is one entry of the Nominatim /search response
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// waitForRateLimit ensures we respect the 1 request/second rate limit
func (c *Client) waitForRateLimit() {
	c.rateLimitLock.Lock()
	defer c.rateLimitLock.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// Search resolves a free-text place query to coordinates and an address.
// An empty result set yields models.ErrLocationNotFound; any network or
// service failure yields models.ErrGeocodeUnavailable. Both are recoverable.
func (c *Client) Search(ctx context.Context, query string) (*Place, error) {
	c.waitForRateLimit()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating geocode request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Geocoding request failed")
		return nil, fmt.Errorf("%w: %v", models.ErrGeocodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("Geocoding service returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", models.ErrGeocodeUnavailable, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrGeocodeUnavailable, err)
	}

	if len(results) == 0 {
		return nil, models.ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", models.ErrGeocodeUnavailable, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", models.ErrGeocodeUnavailable, results[0].Lon)
	}

	log.Infof("Geocoded %q to %s", query, results[0].DisplayName)

	return &Place{
		Lat:     lat,
		Lon:     lon,
		Address: results[0].DisplayName,
	}, nil
}
