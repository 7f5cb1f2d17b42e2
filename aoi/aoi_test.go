package aoi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kshetranetra/geocode"
	"kshetranetra/models"

	geojson "github.com/paulmach/go.geojson"
)

type stubGeocoder struct {
	place *geocode.Place
	err   error
}

func (s *stubGeocoder) Search(_ context.Context, _ string) (*geocode.Place, error) {
	return s.place, s.err
}

func TestResolve(t *testing.T) {
	selector := NewSelector(&stubGeocoder{
		place: &geocode.Place{Lat: 28.6139, Lon: 77.2090, Address: "New Delhi, India"},
	})

	area, err := selector.Resolve(context.Background(), "delhi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if area.Kind != models.AOIPoint {
		t.Errorf("expected point AOI, got %s", area.Kind)
	}
	if area.Lat != 28.6139 || area.Lon != 77.2090 {
		t.Errorf("unexpected center (%f, %f)", area.Lat, area.Lon)
	}
	if area.Name != "New Delhi, India" {
		t.Errorf("unexpected name %q", area.Name)
	}
}

func TestResolvePassesThroughGeocodeErrors(t *testing.T) {
	selector := NewSelector(&stubGeocoder{err: models.ErrGeocodeUnavailable})

	_, err := selector.Resolve(context.Background(), "delhi")
	if !errors.Is(err, models.ErrGeocodeUnavailable) {
		t.Fatalf("expected ErrGeocodeUnavailable, got %v", err)
	}
}

func polygonGeometry(ring [][]float64) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{ring})
}

func TestFromGeometryRectangle(t *testing.T) {
	tests := []struct {
		name string
		ring [][]float64
		want [4]float64
	}{
		{
			name: "counterclockwise rectangle",
			ring: [][]float64{{77, 28}, {78, 28}, {78, 29}, {77, 29}, {77, 28}},
			want: [4]float64{77, 28, 78, 29},
		},
		{
			name: "clockwise rectangle",
			ring: [][]float64{{78, 29}, {78, 28}, {77, 28}, {77, 29}, {78, 29}},
			want: [4]float64{77, 28, 78, 29},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, err := FromGeometry(polygonGeometry(tt.ring))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if area.Kind != models.AOIBox {
				t.Fatalf("expected box AOI, got %s", area.Kind)
			}
			if area.BBox != tt.want {
				t.Errorf("expected bbox %v, got %v", tt.want, area.BBox)
			}
			if area.BBox[0] > area.BBox[2] || area.BBox[1] > area.BBox[3] {
				t.Error("bbox min exceeds max")
			}
		})
	}
}

func TestFromGeometryPolygonKeepsRing(t *testing.T) {
	ring := [][]float64{{77, 28}, {78, 28.5}, {77.5, 29}, {77, 28}}

	area, err := FromGeometry(polygonGeometry(ring))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if area.Kind != models.AOIPolygon {
		t.Fatalf("expected polygon AOI, got %s", area.Kind)
	}
	if len(area.Ring) != len(ring) {
		t.Errorf("expected %d vertices, got %d", len(ring), len(area.Ring))
	}
}

func TestFromGeometryRejectsUnsupported(t *testing.T) {
	tests := []struct {
		name     string
		geometry *geojson.Geometry
	}{
		{
			name:     "nil geometry",
			geometry: nil,
		},
		{
			name:     "point geometry",
			geometry: geojson.NewPointGeometry([]float64{77, 28}),
		},
		{
			name:     "degenerate ring",
			geometry: polygonGeometry([][]float64{{77, 28}, {78, 28}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGeometry(tt.geometry)
			if !errors.Is(err, models.ErrUnsupportedGeometry) {
				t.Fatalf("expected ErrUnsupportedGeometry, got %v", err)
			}
		})
	}
}

func TestDescribeTruncates(t *testing.T) {
	area := &models.AreaOfInterest{
		Kind: models.AOIPolygon,
		Ring: [][]float64{
			{77.123456, 28.123456}, {78.654321, 28.123456}, {78.1, 29.9}, {77.2, 29.1}, {77.123456, 28.123456},
		},
	}

	desc := Describe(area)
	if !strings.Contains(desc, "...") {
		t.Errorf("expected truncated description, got %q", desc)
	}
	if !strings.Contains(desc, "sq. km") {
		t.Errorf("expected area estimate in description, got %q", desc)
	}
}

func TestApproxAreaKm2(t *testing.T) {
	box := &models.AreaOfInterest{
		Kind: models.AOIBox,
		BBox: [4]float64{77, 28, 78, 29},
	}

	// one degree square near 28N is roughly 11000 sq km
	km2 := ApproxAreaKm2(box)
	if km2 < 9000 || km2 > 13000 {
		t.Errorf("expected a plausible 1-degree box area, got %f", km2)
	}

	point := &models.AreaOfInterest{Kind: models.AOIPoint, Lat: 28, Lon: 77}
	if got := ApproxAreaKm2(point); got != 0 {
		t.Errorf("expected 0 area for point AOI, got %f", got)
	}
}
