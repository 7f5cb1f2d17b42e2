package aoi

import (
	"context"
	"encoding/json"
	"fmt"

	"kshetranetra/geocode"
	"kshetranetra/models"

	"github.com/apex/log"
	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
)

const earthRadiusKm = 6371.01

// Geocoder resolves a free-text place query to coordinates
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocode.Place, error)
}

// Selector normalizes user input (place search or drawn geometry) into an
// AreaOfInterest
type Selector struct {
	geocoder Geocoder
}

// NewSelector creates a new AOI selector
func NewSelector(geocoder Geocoder) *Selector {
	return &Selector{geocoder: geocoder}
}

// Resolve turns a free-text place query into a point AOI centered at the
// geocoded coordinates. Geocoding failures pass through untouched so the
// handler can tell "not found" from "service unavailable".
func (s *Selector) Resolve(ctx context.Context, query string) (*models.AreaOfInterest, error) {
	place, err := s.geocoder.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	return &models.AreaOfInterest{
		Kind: models.AOIPoint,
		Name: place.Address,
		Lat:  place.Lat,
		Lon:  place.Lon,
	}, nil
}

// FromGeometry normalizes a drawn GeoJSON geometry. An axis-aligned
// rectangle ring reduces to a bounding box [minLon, minLat, maxLon, maxLat];
// any other polygon keeps its vertex ring as drawn. No validity checking
// (self-intersection, winding order) is performed.
func FromGeometry(g *geojson.Geometry) (*models.AreaOfInterest, error) {
	if g == nil || !g.IsPolygon() || len(g.Polygon) == 0 {
		return nil, models.ErrUnsupportedGeometry
	}

	ring := g.Polygon[0]
	if len(ring) < 4 {
		return nil, fmt.Errorf("%w: ring has %d vertices", models.ErrUnsupportedGeometry, len(ring))
	}

	minLon, minLat, maxLon, maxLat := boundingBox(ring)

	if isAxisAlignedRect(ring, minLon, minLat, maxLon, maxLat) {
		log.Infof("Drawn rectangle reduced to bbox [%f, %f, %f, %f]", minLon, minLat, maxLon, maxLat)
		return &models.AreaOfInterest{
			Kind: models.AOIBox,
			BBox: [4]float64{minLon, minLat, maxLon, maxLat},
		}, nil
	}

	log.Infof("Drawn polygon with %d vertices captured", len(ring))
	return &models.AreaOfInterest{
		Kind: models.AOIPolygon,
		Ring: ring,
	}, nil
}

// boundingBox computes the min/max lon/lat over a vertex ring
func boundingBox(ring [][]float64) (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat = ring[0][0], ring[0][1]
	maxLon, maxLat = minLon, minLat
	for _, v := range ring[1:] {
		if v[0] < minLon {
			minLon = v[0]
		}
		if v[0] > maxLon {
			maxLon = v[0]
		}
		if v[1] < minLat {
			minLat = v[1]
		}
		if v[1] > maxLat {
			maxLat = v[1]
		}
	}
	return minLon, minLat, maxLon, maxLat
}

// isAxisAlignedRect reports whether every vertex of the ring sits on a
// corner of its own bounding box, which is what the map widget's rectangle
// tool produces.
func isAxisAlignedRect(ring [][]float64, minLon, minLat, maxLon, maxLat float64) bool {
	for _, v := range ring {
		lonOnEdge := v[0] == minLon || v[0] == maxLon
		latOnEdge := v[1] == minLat || v[1] == maxLat
		if !lonOnEdge || !latOnEdge {
			return false
		}
	}
	return true
}

// Describe renders the report line for an AOI: the geometry JSON truncated
// the way the original report did, with an approximate area for drawn shapes.
func Describe(a *models.AreaOfInterest) string {
	if a == nil {
		return "no AOI selected"
	}

	raw, err := json.Marshal(a)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", a))
	}
	desc := string(raw)
	if len(desc) > 80 {
		desc = desc[:80] + "..."
	}

	if km2 := ApproxAreaKm2(a); km2 > 0 {
		desc = fmt.Sprintf("%s (~%.0f sq. km)", desc, km2)
	}
	return desc
}

// ApproxAreaKm2 estimates the AOI area on the sphere. Point AOIs have no
// area; degenerate rings yield 0.
func ApproxAreaKm2(a *models.AreaOfInterest) float64 {
	var ring [][]float64
	switch a.Kind {
	case models.AOIBox:
		ring = [][]float64{
			{a.BBox[0], a.BBox[1]},
			{a.BBox[2], a.BBox[1]},
			{a.BBox[2], a.BBox[3]},
			{a.BBox[0], a.BBox[3]},
		}
	case models.AOIPolygon:
		ring = a.Ring
	default:
		return 0
	}

	points := make([]s2.Point, 0, len(ring))
	for i, v := range ring {
		// drop a closing vertex identical to the first
		if i == len(ring)-1 && len(ring) > 1 && v[0] == ring[0][0] && v[1] == ring[0][1] {
			break
		}
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(v[1], v[0])))
	}
	if len(points) < 3 {
		return 0
	}

	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop.Area() * earthRadiusKm * earthRadiusKm
}
