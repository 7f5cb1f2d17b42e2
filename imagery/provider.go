// Package imagery obtains the T1/T2 satellite images for a detection run.
// Exactly one provider strategy is active per deployment, selected by
// configuration.
package imagery

import (
	"context"

	"kshetranetra/models"
)

// Provider fetches one raster image for an (AOI, capture moment) pair.
// A missing image is reported as models.ErrImageUnavailable; the caller
// treats that slot as absent and blocks the rest of the run.
type Provider interface {
	Fetch(ctx context.Context, area *models.AreaOfInterest, moment models.CaptureMoment) (*models.RasterImage, error)
}
