package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"kshetranetra/models"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

const (
	// Uploads larger than this on either axis are downscaled
	maxUploadDimension = 2048
)

// UploadProvider serves images the user uploaded for this run, keyed by
// moment label. It is constructed per run from the session's upload slots.
type UploadProvider struct {
	uploads map[string]image.Image
}

// NewUploadProvider creates a provider over the given upload slots
func NewUploadProvider(uploads map[string]image.Image) *UploadProvider {
	return &UploadProvider{uploads: uploads}
}

// Fetch returns the uploaded image for the moment's slot, or
// models.ErrImageUnavailable when nothing was uploaded for it.
func (p *UploadProvider) Fetch(_ context.Context, _ *models.AreaOfInterest, moment models.CaptureMoment) (*models.RasterImage, error) {
	img, ok := p.uploads[moment.Label]
	if !ok || img == nil {
		return nil, fmt.Errorf("%w: no upload for %s", models.ErrImageUnavailable, moment.Label)
	}
	return &models.RasterImage{Img: img, Moment: moment}, nil
}

// DecodeUpload validates and decodes an uploaded image file. JPEG uploads
// get their EXIF orientation applied; oversized images are downscaled to
// maxUploadDimension preserving aspect ratio.
func DecodeUpload(filename string, data []byte) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		return nil, fmt.Errorf("unsupported file type %q, want .jpg, .jpeg or .png", ext)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding upload %s: %w", filename, err)
	}

	if format == "jpeg" {
		if orientation := imageOrientation(data); orientation > 1 {
			log.Infof("Applying EXIF orientation %d to upload %s", orientation, filename)
			img = applyOrientation(img, orientation)
		}
	}

	if img.Bounds().Dx() > maxUploadDimension || img.Bounds().Dy() > maxUploadDimension {
		img = downscale(img, maxUploadDimension)
	}

	return img, nil
}

// imageOrientation extracts the EXIF orientation tag, defaulting to 1
func imageOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	val, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return val
}

// applyOrientation maps source pixels into an upright image for the given
// EXIF orientation value (2-8; 1 is a no-op).
func applyOrientation(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rotated := orientation >= 5 && orientation <= 8
	outW, outH := w, h
	if rotated {
		outW, outH = h, w
	}

	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2: // mirror horizontal
				dx, dy = w-1-x, y
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // mirror vertical
				dx, dy = x, h-1-y
			case 5: // mirror horizontal + rotate 270 CW
				dx, dy = y, x
			case 6: // rotate 90 CW
				dx, dy = h-1-y, x
			case 7: // mirror horizontal + rotate 90 CW
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 270 CW
				dx, dy = y, w-1-x
			default:
				dx, dy = x, y
			}
			out.Set(dx, dy, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

// downscale resizes the image so its longer side equals maxDim
func downscale(img image.Image, maxDim int) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	var newW, newH int
	if w >= h {
		newW = maxDim
		newH = h * maxDim / w
	} else {
		newH = maxDim
		newW = w * maxDim / h
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
