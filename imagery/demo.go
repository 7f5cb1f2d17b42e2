package imagery

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"kshetranetra/models"

	"github.com/apex/log"
	"github.com/fogleman/gg"
)

const (
	placeholderSize = 400
)

// Per-moment placeholder colors, matching the demo assets
var placeholderColors = map[string][3]int{
	"T1": {0, 120, 255}, // blue
	"T2": {255, 120, 0}, // orange
}

// DemoProvider serves fixed demo assets (t1.jpeg / t2.jpeg) from the assets
// directory, synthesizing a labelled solid-color placeholder when an asset
// is missing. It never fails.
type DemoProvider struct {
	assetsDir string
}

// NewDemoProvider creates a demo provider rooted at assetsDir
func NewDemoProvider(assetsDir string) *DemoProvider {
	return &DemoProvider{assetsDir: assetsDir}
}

// Fetch returns the demo image for the given moment
func (p *DemoProvider) Fetch(_ context.Context, _ *models.AreaOfInterest, moment models.CaptureMoment) (*models.RasterImage, error) {
	path := filepath.Join(p.assetsDir, strings.ToLower(moment.Label)+".jpeg")
	if img, err := loadImage(path); err == nil {
		return &models.RasterImage{Img: img, Moment: moment}, nil
	} else if !os.IsNotExist(err) {
		log.WithError(err).Warnf("Demo asset %s unreadable, using placeholder", path)
	}

	return &models.RasterImage{
		Img:    placeholderImage(moment),
		Moment: moment,
	}, nil
}

// loadImage reads and decodes an image file
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// placeholderImage draws the simulated satellite image: a solid color with
// the moment label in the top-left corner.
func placeholderImage(moment models.CaptureMoment) image.Image {
	color, ok := placeholderColors[moment.Label]
	if !ok {
		color = [3]int{96, 96, 96}
	}

	dc := gg.NewContext(placeholderSize, placeholderSize)
	dc.SetRGB255(color[0], color[1], color[2])
	dc.Clear()

	dc.SetRGB255(255, 255, 255)
	label := fmt.Sprintf("%s: %s", moment.Label, moment.At.Format("2006-01-02"))
	dc.DrawString(label, 10, 20)

	return dc.Image()
}
