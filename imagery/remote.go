package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"time"

	"kshetranetra/models"

	"github.com/apex/log"
)

// RemoteProvider queries a satellite-imagery API: bearer-token login,
// product search by bounding box and date, then download. Any failure along
// the way surfaces as models.ErrImageUnavailable with the cause attached.
type RemoteProvider struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client

	token string
}

// NewRemoteProvider creates a remote imagery provider. timeout bounds each
// individual call (login, search, download); there is no retry.
func NewRemoteProvider(baseURL, user, password string, timeout time.Duration) *RemoteProvider {
	return &RemoteProvider{
		baseURL:  baseURL,
		user:     user,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type product struct {
	ID       string `json:"id"`
	Captured string `json:"captured"`
}

type searchResponse struct {
	Products []product `json:"products"`
}

// Fetch resolves the product for (AOI, moment) and downloads its image.
// When the search returns several products for the date, the first one is
// used; there is no tie-break rule.
func (p *RemoteProvider) Fetch(ctx context.Context, area *models.AreaOfInterest, moment models.CaptureMoment) (*models.RasterImage, error) {
	if err := p.ensureToken(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrImageUnavailable, err)
	}

	prod, err := p.searchFirstProduct(ctx, area, moment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrImageUnavailable, err)
	}

	img, err := p.download(ctx, prod.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrImageUnavailable, err)
	}

	log.Infof("Fetched remote product %s for %s", prod.ID, moment.Label)
	return &models.RasterImage{Img: img, Moment: moment}, nil
}

// ensureToken logs in once and caches the bearer token for the provider's
// lifetime
func (p *RemoteProvider) ensureToken(ctx context.Context) error {
	if p.token != "" {
		return nil
	}

	body, err := json.Marshal(loginRequest{Username: p.user, Password: p.password})
	if err != nil {
		return fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("imagery provider denied authentication (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if lr.Token == "" {
		return fmt.Errorf("login response carried no token")
	}

	p.token = lr.Token
	return nil
}

// searchFirstProduct queries products for the AOI's bounding box over the
// moment's calendar day and returns the first match
func (p *RemoteProvider) searchFirstProduct(ctx context.Context, area *models.AreaOfInterest, moment models.CaptureMoment) (*product, error) {
	minLon, minLat, maxLon, maxLat := boundsForAOI(area)
	day := moment.At.Format("2006-01-02")

	url := fmt.Sprintf("%s/products?bbox=%f,%f,%f,%f&from=%s&to=%s",
		p.baseURL, minLon, minLat, maxLon, maxLat, day, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product search returned status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if len(sr.Products) == 0 {
		return nil, fmt.Errorf("no products for %s on %s", moment.Label, day)
	}

	return &sr.Products[0], nil
}

// download retrieves and decodes the product image
func (p *RemoteProvider) download(ctx context.Context, productID string) (image.Image, error) {
	url := fmt.Sprintf("%s/products/%s/download", p.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download body: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding product %s: %w", productID, err)
	}
	return img, nil
}

// boundsForAOI reduces any AOI to a query bounding box. A point AOI gets a
// 1km box around its center; 1 degree of longitude shrinks with latitude.
func boundsForAOI(area *models.AreaOfInterest) (minLon, minLat, maxLon, maxLat float64) {
	switch area.Kind {
	case models.AOIBox:
		return area.BBox[0], area.BBox[1], area.BBox[2], area.BBox[3]
	case models.AOIPolygon:
		minLon, minLat = area.Ring[0][0], area.Ring[0][1]
		maxLon, maxLat = minLon, minLat
		for _, v := range area.Ring[1:] {
			minLon = math.Min(minLon, v[0])
			maxLon = math.Max(maxLon, v[0])
			minLat = math.Min(minLat, v[1])
			maxLat = math.Max(maxLat, v[1])
		}
		return minLon, minLat, maxLon, maxLat
	default:
		latDegrees := 1.0 / 111.32
		lonDegrees := 1.0 / (111.32 * math.Cos(area.Lat*math.Pi/180.0))
		return area.Lon - lonDegrees/2, area.Lat - latDegrees/2,
			area.Lon + lonDegrees/2, area.Lat + latDegrees/2
	}
}
