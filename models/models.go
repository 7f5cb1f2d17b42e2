package models

import (
	"fmt"
	"image"
	"time"
)

// AOIKind identifies the shape of an area of interest.
type AOIKind string

const (
	AOIPoint   AOIKind = "point"
	AOIBox     AOIKind = "box"
	AOIPolygon AOIKind = "polygon"
)

// AreaOfInterest represents a user-chosen geographic region. A point AOI
// comes from a place search, a box from a drawn rectangle and a polygon
// from a drawn polygon. Only the fields matching Kind are populated.
type AreaOfInterest struct {
	Kind AOIKind `json:"kind"`
	// Name is an optional display name, e.g. the geocoded address
	Name string `json:"name,omitempty"`
	// Lat/Lon are the center of a point AOI
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
	// BBox is [minLon, minLat, maxLon, maxLat] for a box AOI
	BBox [4]float64 `json:"bbox,omitempty"`
	// Ring is the vertex ring of a polygon AOI, [lon, lat] pairs
	Ring [][]float64 `json:"ring,omitempty"`
}

// CaptureMoment is a named point in time, T1 ("before") or T2 ("after").
type CaptureMoment struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// NewCaptureMoment builds a moment from a date string ("2006-01-02") and a
// 12-hour clock selection. No ordering constraint between T1 and T2 is
// enforced anywhere.
func NewCaptureMoment(label, date string, hour12, minute int, meridiem string) (CaptureMoment, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return CaptureMoment{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if hour12 < 1 || hour12 > 12 {
		return CaptureMoment{}, fmt.Errorf("invalid hour %d, want 1-12", hour12)
	}
	if minute < 0 || minute > 59 {
		return CaptureMoment{}, fmt.Errorf("invalid minute %d", minute)
	}

	hour := hour12 % 12
	switch meridiem {
	case "AM", "am":
		// midnight stays 0
	case "PM", "pm":
		hour += 12
	default:
		return CaptureMoment{}, fmt.Errorf("invalid meridiem %q, want AM or PM", meridiem)
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	return CaptureMoment{Label: label, At: at}, nil
}

// Format renders the moment as day-month-year with a 12-hour clock,
// e.g. "01-06-2024 09:00 AM".
func (m CaptureMoment) Format() string {
	return m.At.Format("02-01-2006 03:04 PM")
}

// RasterImage is a single decoded satellite image tied to its capture moment.
type RasterImage struct {
	Img    image.Image
	Moment CaptureMoment
}

// Width returns the pixel width of the image.
func (r *RasterImage) Width() int {
	return r.Img.Bounds().Dx()
}

// Height returns the pixel height of the image.
func (r *RasterImage) Height() int {
	return r.Img.Bounds().Dy()
}

// ChangeMask is the visual output of comparing a T1 and a T2 image.
type ChangeMask struct {
	Img image.Image
}

// ReportMeta is the metadata embedded in a generated report.
type ReportMeta struct {
	AOIDescription string    `json:"aoi_description"`
	AOIName        string    `json:"aoi_name,omitempty"`
	T1             string    `json:"t1"`
	T2             string    `json:"t2"`
	GeneratedAt    time.Time `json:"generated_at"`
	Summary        string    `json:"summary"`
}

// Report is a generated change report document.
type Report struct {
	Bytes []byte     `json:"-"`
	Meta  ReportMeta `json:"meta"`
}

// EmailDispatch is a single send attempt of a report.
type EmailDispatch struct {
	Recipient string
	Subject   string
	Body      string
	Report    *Report
}

// DeliveryResult describes a completed send attempt.
type DeliveryResult struct {
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sent_at"`
	Message   string    `json:"message"`
}
