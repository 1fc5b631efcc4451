// Package recognize determines which known container identifiers a scanned
// PDF depicts. The container stamp sits in a fixed region of the first page,
// so recognition renders page 1 only, crops that region, runs digit-only
// OCR over it and slides a 7-character window across the result, matching
// windows against the trailing-digit suffixes of the known identifiers.
//
// When the basic pass finds nothing, an optional fallback re-runs OCR over
// the same cropped image binarized at two fixed threshold levels.
package recognize

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Factiosi/qManager/ocr"
	"github.com/Factiosi/qManager/refdata"
)

// DefaultCrop is the first-page region the container stamp occupies, in
// pixels at DefaultDPI. The rectangle is tuned against the scanned-document
// layout this tool targets; override it for a different scanner profile.
var DefaultCrop = image.Rect(0, 700, 1600, 1000)

// DefaultDPI is the page-1 rendering resolution the crop coordinates
// assume.
const DefaultDPI = 200

// defaultThresholds are the binarization levels of the fallback passes,
// tried in order.
var defaultThresholds = []uint8{127, 80}

// Config configures recognition.
type Config struct {
	// Renderer rasterizes page 1.
	Renderer ocr.Renderer
	// Engine extracts text from the cropped region.
	Engine ocr.Engine

	// Crop overrides DefaultCrop when non-empty.
	Crop image.Rectangle
	// DPI overrides DefaultDPI when positive.
	DPI int

	// Binarization enables the two-pass threshold fallback.
	Binarization bool
	// Thresholds overrides the fallback binarization levels.
	Thresholds []uint8

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Crop.Empty() {
		c.Crop = DefaultCrop
	}
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}
	if len(c.Thresholds) == 0 {
		c.Thresholds = defaultThresholds
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Recognize returns the known container identifiers found on the first page
// of pdfPath, in the order first matched, deduplicated. An empty result
// with a nil error is a recognition miss, not a failure.
func Recognize(ctx context.Context, cfg Config, pdfPath string, validIDs []string) ([]string, error) {
	cfg.defaults()

	page, err := cfg.Renderer.RenderPage(ctx, pdfPath, 1, cfg.DPI)
	if err != nil {
		return nil, err
	}
	cropped := ocr.Crop(page, cfg.Crop)
	index := SuffixIndex(validIDs)

	text, err := cfg.Engine.Recognize(ctx, cropped, ocr.DigitWhitelist)
	if err != nil {
		return nil, err
	}
	matches := MatchSuffixes(text, index)
	if len(matches) > 0 || !cfg.Binarization {
		return matches, nil
	}

	// Fallback: binarize the already-cropped image — the PDF is not
	// rendered again — and stop at the first threshold that matches.
	for _, threshold := range cfg.Thresholds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bw := Binarize(cropped, threshold)
		text, err := cfg.Engine.Recognize(ctx, bw, ocr.DigitWhitelist)
		if err != nil {
			cfg.Logger.Warn("binarized pass failed",
				"path", pdfPath, "threshold", threshold, "error", err)
			continue
		}
		if matches := MatchSuffixes(text, index); len(matches) > 0 {
			cfg.Logger.Debug("binarized pass matched",
				"path", pdfPath, "threshold", threshold, "matches", len(matches))
			return matches, nil
		}
	}
	return nil, nil
}

// SuffixIndex maps the trailing-7-digit suffix of each identifier to the
// identifiers sharing it, preserving input order within a bucket.
// Identifiers with fewer than 7 digits are skipped.
func SuffixIndex(ids []string) map[string][]string {
	index := make(map[string][]string, len(ids))
	for _, id := range ids {
		if sfx, ok := refdata.DigitSuffix(id); ok {
			index[sfx] = append(index[sfx], id)
		}
	}
	return index
}

// MatchSuffixes slides a 7-character window across the OCR text (whitespace
// removed) and collects every identifier whose suffix equals an all-digit
// window, in window order, deduplicated. Several identifiers sharing one
// suffix are all surfaced — ambiguity is not silently resolved.
func MatchSuffixes(text string, index map[string][]string) []string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	var found []string
	seen := make(map[string]bool)
	for i := 0; i+7 <= len(clean); i++ {
		window := clean[i : i+7]
		if !allDigits(window) {
			continue
		}
		for _, id := range index[window] {
			if !seen[id] {
				seen[id] = true
				found = append(found, id)
			}
		}
	}
	return found
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Binarize converts img to pure black and white: pixels with gray level
// above threshold become white, the rest black.
func Binarize(img image.Image, threshold uint8) image.Image {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
