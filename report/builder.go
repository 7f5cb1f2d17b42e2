// Package report lays out the one-page change report PDF.
package report

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"time"

	"kshetranetra/models"

	"github.com/apex/log"
	"github.com/go-pdf/fpdf"
)

const (
	// DefaultSummary is the fixed summary sentence embedded in every report
	DefaultSummary = "Structural changes detected in AOI"

	reportTitle = "KshetraNetra Alert Report"

	// Mask placement on the page, in mm
	maskOffsetX = 30.0
	maskWidth   = 150.0

	generatedAtLayout = "02-01-2006 03:04 PM"
)

// Builder produces the report document. When a Unicode font path is
// configured and readable it is embedded; otherwise the core Latin-1 font
// is used and non-encodable characters degrade to "?" instead of failing
// the build.
type Builder struct {
	unicodeFontPath string
}

// NewBuilder creates a report builder
func NewBuilder(unicodeFontPath string) *Builder {
	return &Builder{unicodeFontPath: unicodeFontPath}
}

// Build composes the single-page report and returns its byte buffer. The
// mask image passes through a scoped temporary file which is removed on
// every exit path.
func (b *Builder) Build(aoiDescription string, t1, t2 models.CaptureMoment, mask *models.ChangeMask,
	generatedAt time.Time, summary, aoiName string) (*models.Report, error) {

	if mask == nil || mask.Img == nil {
		return nil, models.ErrImageUnavailable
	}

	maskPath, err := writeMaskTemp(mask)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(maskPath); rmErr != nil {
			log.WithError(rmErr).Warnf("Failed to remove temp mask %s", maskPath)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	// keep content streams uncompressed so embedded text stays searchable
	pdf.SetCompression(false)

	fontName, encode := b.selectFont(pdf)

	pdf.AddPage()
	pdf.SetFont(fontName, "B", 14)
	pdf.CellFormat(0, 10, encode(reportTitle), "", 1, "", false, 0, "")

	pdf.SetFont(fontName, "", 12)
	pdf.CellFormat(0, 10, encode("AOI Geometry: "+aoiDescription), "", 1, "", false, 0, "")
	if aoiName != "" {
		pdf.CellFormat(0, 10, encode("Location: "+aoiName), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 10, encode("T1 Date: "+t1.Format()), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, encode("T2 Date: "+t2.Format()), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, encode("Report Generated: "+generatedAt.Format(generatedAtLayout)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, encode("Summary: "+summary), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// fixed offset and width, height 0 preserves the aspect ratio
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.ImageOptions(maskPath, maskOffsetX, 0, maskWidth, 0, true, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("laying out report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	log.Infof("Report generated (%d bytes)", buf.Len())

	return &models.Report{
		Bytes: buf.Bytes(),
		Meta: models.ReportMeta{
			AOIDescription: aoiDescription,
			AOIName:        aoiName,
			T1:             t1.Format(),
			T2:             t2.Format(),
			GeneratedAt:    generatedAt,
			Summary:        summary,
		},
	}, nil
}

// selectFont registers the configured Unicode font when possible and
// returns the font family to use plus the text encoder for it
func (b *Builder) selectFont(pdf *fpdf.Fpdf) (string, func(string) string) {
	if b.unicodeFontPath != "" {
		if _, err := os.Stat(b.unicodeFontPath); err == nil {
			pdf.AddUTF8Font("unicode", "", b.unicodeFontPath)
			pdf.AddUTF8Font("unicode", "B", b.unicodeFontPath)
			return "unicode", func(s string) string { return s }
		} else {
			log.WithError(err).Warnf("Unicode font %s unavailable, falling back to core font", b.unicodeFontPath)
		}
	}
	return "Arial", degradeToLatin1
}

// degradeToLatin1 replaces characters the core fonts cannot encode instead
// of failing the build
func degradeToLatin1(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			out = append(out, '?')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}

// writeMaskTemp stores the mask as a scoped temporary PNG for embedding
func writeMaskTemp(mask *models.ChangeMask) (string, error) {
	tmp, err := os.CreateTemp("", "kshetranetra-mask-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp mask file: %w", err)
	}

	if err := png.Encode(tmp, mask.Img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("encoding mask: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing temp mask file: %w", err)
	}

	return tmp.Name(), nil
}
