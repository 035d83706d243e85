// Package imaging decodes uploaded photos and bounds their pixel size.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for the accepted upload formats.
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxSide is the longest edge, in pixels, an analyzed image may have.
const DefaultMaxSide = 2048

// maxDecodePixels caps the header-declared canvas so a small compressed file
// cannot expand into gigabytes of pixels.
const maxDecodePixels = 80_000_000

// ErrTooLarge is returned when the declared dimensions exceed the decoder limit.
var ErrTooLarge = errors.New("image dimensions exceed decoder limit")

// Prepared is a decoded image ready for analysis.
type Prepared struct {
	Image image.Image
	// Data is the original upload, or a JPEG re-encode when Downscaled.
	Data       []byte
	MIMEType   string
	Format     string
	Width      int
	Height     int
	Downscaled bool
}

// Prepare decodes data and downscales it so neither side exceeds maxSide.
// mimeType describes data as uploaded; a downscaled image is re-encoded as JPEG.
func Prepare(data []byte, mimeType string, maxSide int) (*Prepared, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image header declares %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > maxDecodePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	p := &Prepared{
		Image:    img,
		Data:     data,
		MIMEType: mimeType,
		Format:   format,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}
	if p.Width <= maxSide && p.Height <= maxSide {
		return p, nil
	}

	w, h := fitWithin(p.Width, p.Height, maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode downscaled image: %w", err)
	}

	p.Image = dst
	p.Data = buf.Bytes()
	p.MIMEType = "image/jpeg"
	p.Width, p.Height = w, h
	p.Downscaled = true
	return p, nil
}

// fitWithin scales (w, h) so the longer side equals maxSide, preserving aspect.
func fitWithin(w, h, maxSide int) (int, int) {
	if w >= h {
		nh := h * maxSide / w
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh
	}
	nw := w * maxSide / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide
}
