package processor

import (
	"image"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

const (
	noiseMean   = 128
	noiseStdDev = 80
)

// GenerateNoise fills a w x h opaque image with N(128, 80) channel values,
// clipped to [0,255] and truncated. Values are drawn row by row, R, G, B.
func GenerateNoise(rng *rand.Rand, w, h int) *image.NRGBA {
	noise := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i+3 < len(noise.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := rng.NormFloat64()*noiseStdDev + noiseMean
			switch {
			case v <= 0:
				noise.Pix[i+c] = 0
			case v >= 255:
				noise.Pix[i+c] = 255
			default:
				noise.Pix[i+c] = uint8(v)
			}
		}
		noise.Pix[i+3] = 0xff
	}
	return noise
}

// Blend returns a*(1-alpha) + b*alpha per channel. Both images must have
// the same dimensions; the result is anchored at the origin.
func Blend(a, b *image.NRGBA, alpha float64) *image.NRGBA {
	a, b = compact(a), compact(b)
	dst := image.NewNRGBA(a.Rect)
	for i := 0; i+3 < len(a.Pix) && i+3 < len(b.Pix); i += 4 {
		dst.Pix[i] = blendChannel(a.Pix[i], b.Pix[i], alpha)
		dst.Pix[i+1] = blendChannel(a.Pix[i+1], b.Pix[i+1], alpha)
		dst.Pix[i+2] = blendChannel(a.Pix[i+2], b.Pix[i+2], alpha)
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// GaussianBlur blurs img with the given sigma. Non-positive radii return a copy.
func GaussianBlur(img *image.NRGBA, radius float64) *image.NRGBA {
	if radius <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Blur(img, radius)
}

// ApplyTexture blends noise into img with the given strength.
func ApplyTexture(img, noise *image.NRGBA, strength float64) *image.NRGBA {
	return Blend(img, noise, strength)
}

// Brushstroke simulates paint strokes with an isotropic blur.
func Brushstroke(img *image.NRGBA, radius float64) *image.NRGBA {
	return GaussianBlur(img, radius)
}
