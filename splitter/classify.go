package splitter

import "image"

// Pages bigger than meanSampleLimit pixels are sampled with a fixed stride
// instead of pixel by pixel; at classification DPI the approximation is well
// inside the decision margin.
const (
	meanSampleLimit  = 10000
	meanSampleStride = 4
)

// MeanRGB computes the mean color of a page image on the 0–255 scale.
func MeanRGB(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	stride := 1
	if bounds.Dx()*bounds.Dy() > meanSampleLimit {
		stride = meanSampleStride
	}

	var rs, gs, bs, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			rs += float64(pr >> 8)
			gs += float64(pg >> 8)
			bs += float64(pb >> 8)
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return rs / n, gs / n, bs / n
}

// IsMarker reports whether a page with mean color (r, g, b) is a marker
// page. Green must strictly exceed red plus the threshold, strictly exceed
// blue, and be strictly brighter than 100.
func IsMarker(r, g, b, threshold float64) bool {
	return g > r+threshold && g > b && g > 100
}
