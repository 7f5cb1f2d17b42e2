// Package change produces the change mask for a detection run. The
// strategies here reproduce the demo's placeholder transforms; none of them
// performs real change detection.
package change

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"kshetranetra/models"

	"github.com/apex/log"
	"github.com/fogleman/gg"
)

// Renderer derives a change mask from the T1 and T2 images. Inputs are
// never mutated.
type Renderer interface {
	Render(t1, t2 *models.RasterImage) (*models.ChangeMask, error)
}

// BlendRenderer composites the two images at equal weight: each output
// channel is round(0.5*t1 + 0.5*t2).
type BlendRenderer struct{}

// NewBlendRenderer creates the blend strategy
func NewBlendRenderer() *BlendRenderer {
	return &BlendRenderer{}
}

// Render blends T1 and T2. The images must share pixel dimensions;
// otherwise models.ErrDimensionMismatch is returned before any pixel work.
func (r *BlendRenderer) Render(t1, t2 *models.RasterImage) (*models.ChangeMask, error) {
	if t1 == nil || t2 == nil {
		return nil, models.ErrImageUnavailable
	}
	if t1.Width() != t2.Width() || t1.Height() != t2.Height() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d",
			models.ErrDimensionMismatch, t1.Width(), t1.Height(), t2.Width(), t2.Height())
	}

	b1 := t1.Img.Bounds()
	b2 := t2.Img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b1.Dx(), b1.Dy()))

	for y := 0; y < b1.Dy(); y++ {
		for x := 0; x < b1.Dx(); x++ {
			c1 := color.RGBAModel.Convert(t1.Img.At(b1.Min.X+x, b1.Min.Y+y)).(color.RGBA)
			c2 := color.RGBAModel.Convert(t2.Img.At(b2.Min.X+x, b2.Min.Y+y)).(color.RGBA)
			out.SetRGBA(x, y, color.RGBA{
				R: blendChannel(c1.R, c2.R),
				G: blendChannel(c1.G, c2.G),
				B: blendChannel(c1.B, c2.B),
				A: blendChannel(c1.A, c2.A),
			})
		}
	}

	return &models.ChangeMask{Img: out}, nil
}

// blendChannel averages two channel values, rounding halves up
func blendChannel(a, b uint8) uint8 {
	return uint8((uint16(a) + uint16(b) + 1) / 2)
}

// GrayscaleRenderer converts the T2 image to luminance. T1 is deliberately
// ignored; the demo this reproduces only ever transformed the "after" image.
type GrayscaleRenderer struct{}

// NewGrayscaleRenderer creates the grayscale strategy
func NewGrayscaleRenderer() *GrayscaleRenderer {
	return &GrayscaleRenderer{}
}

// Render returns the Rec. 601 luminance of T2
func (r *GrayscaleRenderer) Render(_, t2 *models.RasterImage) (*models.ChangeMask, error) {
	if t2 == nil {
		return nil, models.ErrImageUnavailable
	}

	b := t2.Img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.RGBAModel.Convert(t2.Img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			out.SetGray(x, y, color.Gray{Y: uint8(lum + 0.5)})
		}
	}

	return &models.ChangeMask{Img: out}, nil
}

// StaticRenderer returns a fixed pre-made mask, independent of its inputs
type StaticRenderer struct {
	assetsDir string
}

// NewStaticRenderer creates the static strategy rooted at assetsDir
func NewStaticRenderer(assetsDir string) *StaticRenderer {
	return &StaticRenderer{assetsDir: assetsDir}
}

// Render loads mask.jpeg from the assets directory, falling back to a
// generated placeholder card when the asset is missing
func (r *StaticRenderer) Render(_, _ *models.RasterImage) (*models.ChangeMask, error) {
	path := filepath.Join(r.assetsDir, "mask.jpeg")
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		img, _, decErr := image.Decode(f)
		if decErr == nil {
			return &models.ChangeMask{Img: img}, nil
		}
		log.WithError(decErr).Warnf("Static mask %s unreadable, using placeholder", path)
	}

	dc := gg.NewContext(400, 400)
	dc.SetRGB255(64, 64, 64)
	dc.Clear()
	dc.SetRGB255(255, 255, 255)
	dc.DrawString("Simulated Change Mask", 10, 20)
	return &models.ChangeMask{Img: dc.Image()}, nil
}

// FromConfig selects the active renderer strategy by name, defaulting to
// blend for unknown values
func FromConfig(name, assetsDir string) Renderer {
	switch name {
	case "grayscale":
		return NewGrayscaleRenderer()
	case "static":
		return NewStaticRenderer(assetsDir)
	case "blend":
		return NewBlendRenderer()
	default:
		log.Warnf("Unknown change renderer %q, using blend", name)
		return NewBlendRenderer()
	}
}
