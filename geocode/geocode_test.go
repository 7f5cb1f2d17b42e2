package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kshetranetra/models"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		status      int
		wantErr     error
		wantLat     float64
		wantLon     float64
		wantAddress string
	}{
		{
			name:        "single result",
			response:    `[{"lat":"28.6139","lon":"77.2090","display_name":"New Delhi, India"}]`,
			status:      http.StatusOK,
			wantLat:     28.6139,
			wantLon:     77.2090,
			wantAddress: "New Delhi, India",
		},
		{
			name:     "no results",
			response: `[]`,
			status:   http.StatusOK,
			wantErr:  models.ErrLocationNotFound,
		},
		{
			name:     "server error",
			response: `boom`,
			status:   http.StatusInternalServerError,
			wantErr:  models.ErrGeocodeUnavailable,
		},
		{
			name:     "malformed body",
			response: `{not json`,
			status:   http.StatusOK,
			wantErr:  models.ErrGeocodeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("expected /search path, got %s", r.URL.Path)
				}
				if r.Header.Get("User-Agent") != UserAgent {
					t.Errorf("expected User-Agent %q, got %q", UserAgent, r.Header.Get("User-Agent"))
				}
				if r.URL.Query().Get("limit") != "1" {
					t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			place, err := client.Search(context.Background(), "delhi")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if place.Lat != tt.wantLat || place.Lon != tt.wantLon {
				t.Errorf("expected (%f, %f), got (%f, %f)", tt.wantLat, tt.wantLon, place.Lat, place.Lon)
			}
			if place.Address != tt.wantAddress {
				t.Errorf("expected address %q, got %q", tt.wantAddress, place.Address)
			}
		})
	}
}

func TestSearchUnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, 2*time.Second)
	_, err := client.Search(context.Background(), "delhi")
	if !errors.Is(err, models.ErrGeocodeUnavailable) {
		t.Fatalf("expected ErrGeocodeUnavailable, got %v", err)
	}
}
