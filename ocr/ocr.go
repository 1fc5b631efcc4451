// Package ocr defines the rasterization and text-recognition collaborators
// the document pipeline depends on, with a pdfium-backed renderer and a
// tesseract-backed recognition engine.
//
// Both capabilities are interfaces so the pipeline stays a pure function of
// its inputs; tests substitute stubs.
package ocr

import (
	"context"
	"image"
	"image/draw"
)

// DigitWhitelist restricts recognition to decimal digits, the character set
// container suffix matching operates on.
const DigitWhitelist = "0123456789"

// Renderer rasterizes a single PDF page. page is 1-based; dpi is a
// performance hint, not a contract about exact output dimensions.
type Renderer interface {
	RenderPage(ctx context.Context, path string, page, dpi int) (image.Image, error)
}

// Engine extracts text from an image. whitelist, when non-empty, restricts
// the recognized character set.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, whitelist string) (string, error)
}

// Crop returns the part of img inside r, clamped to the image bounds. The
// result is a copy, so the source image can be released.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
