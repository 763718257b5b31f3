// Package crop renders normalized-rectangle crops of catalog photos.
package crop

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/reefwatch/sharkmark/internal/geometry"
)

// ErrEmptyCrop is returned when the rectangle maps to a zero-area
// region of the image.
var ErrEmptyCrop = errors.New("crop rectangle has no pixels")

const jpegQuality = 85

// Render decodes an image, crops it to the normalized rectangle and
// re-encodes it as JPEG.
func Render(data []byte, rect geometry.Rect) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	x0, y0, x1, y1 := rect.PixelBounds(bounds.Dx(), bounds.Dy())
	if x1 <= x0 || y1 <= y0 {
		return nil, ErrEmptyCrop
	}

	cropped := imaging.Crop(img, image.Rect(
		bounds.Min.X+x0,
		bounds.Min.Y+y0,
		bounds.Min.X+x1,
		bounds.Min.Y+y1,
	))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// ResizeToFit scales an image down to fit within maxSize on its longer
// side, keeping aspect ratio. Images already within bounds are only
// re-encoded.
func ResizeToFit(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
