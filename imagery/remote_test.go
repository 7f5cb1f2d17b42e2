package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kshetranetra/models"
)

type fakeImageryAPI struct {
	t            *testing.T
	products     []map[string]string
	failLogin    bool
	searchCalls  int
	seenBearer   string
	downloadByID map[string][]byte
}

func (f *fakeImageryAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if f.failLogin {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("bad login body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
	})

	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls++
		f.seenBearer = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{"products": f.products})
	})

	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/products/"), "/download")
		data, ok := f.downloadByID[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	})

	return mux
}

func TestRemoteProviderFetch(t *testing.T) {
	imgBytes := pngBytes(t, solidRGBA(50, 50, color.RGBA{R: 1, G: 2, B: 3, A: 255}))
	api := &fakeImageryAPI{
		t: t,
		products: []map[string]string{
			{"id": "prod-1", "captured": "2024-01-01T09:00:00Z"},
			{"id": "prod-2", "captured": "2024-01-01T11:00:00Z"},
		},
		downloadByID: map[string][]byte{"prod-1": imgBytes},
	}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	provider := NewRemoteProvider(server.URL, "user", "secret", 5*time.Second)
	area := &models.AreaOfInterest{Kind: models.AOIBox, BBox: [4]float64{77, 28, 78, 29}}

	img, err := provider.Fetch(context.Background(), area, moment(t, "T1", "2024-01-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the first product wins; prod-2 has no download fixture at all
	if img.Width() != 50 || img.Height() != 50 {
		t.Errorf("expected 50x50 image, got %dx%d", img.Width(), img.Height())
	}
	if api.seenBearer != "Bearer test-token" {
		t.Errorf("expected bearer token on search, got %q", api.seenBearer)
	}
}

func TestRemoteProviderNoProducts(t *testing.T) {
	api := &fakeImageryAPI{t: t}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	provider := NewRemoteProvider(server.URL, "user", "secret", 5*time.Second)
	area := &models.AreaOfInterest{Kind: models.AOIBox, BBox: [4]float64{77, 28, 78, 29}}

	_, err := provider.Fetch(context.Background(), area, moment(t, "T1", "2024-01-01"))
	if !errors.Is(err, models.ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable, got %v", err)
	}
}

func TestRemoteProviderAuthDenied(t *testing.T) {
	api := &fakeImageryAPI{t: t, failLogin: true}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	provider := NewRemoteProvider(server.URL, "user", "wrong", 5*time.Second)
	area := &models.AreaOfInterest{Kind: models.AOIBox, BBox: [4]float64{77, 28, 78, 29}}

	_, err := provider.Fetch(context.Background(), area, moment(t, "T1", "2024-01-01"))
	if !errors.Is(err, models.ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable, got %v", err)
	}
	if api.searchCalls != 0 {
		t.Errorf("expected no search after denied login, got %d calls", api.searchCalls)
	}
}

func TestBoundsForAOI(t *testing.T) {
	tests := []struct {
		name string
		area *models.AreaOfInterest
	}{
		{
			name: "box passes through",
			area: &models.AreaOfInterest{Kind: models.AOIBox, BBox: [4]float64{77, 28, 78, 29}},
		},
		{
			name: "polygon reduces to bounds",
			area: &models.AreaOfInterest{
				Kind: models.AOIPolygon,
				Ring: [][]float64{{77, 28}, {78, 28.5}, {77.5, 29}, {77, 28}},
			},
		},
		{
			name: "point gets a surrounding box",
			area: &models.AreaOfInterest{Kind: models.AOIPoint, Lat: 28.5, Lon: 77.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minLon, minLat, maxLon, maxLat := boundsForAOI(tt.area)
			if minLon >= maxLon || minLat >= maxLat {
				t.Errorf("degenerate bounds [%f, %f, %f, %f]", minLon, minLat, maxLon, maxLat)
			}
		})
	}
}
