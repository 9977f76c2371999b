package processor

import (
	"image"

	"github.com/nfnt/resize"
)

// FitTexture resizes texture to exactly w x h with bicubic resampling and
// drops its alpha channel. Aspect ratio is not preserved.
func FitTexture(texture image.Image, w, h int) *image.NRGBA {
	b := texture.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return Flatten(texture)
	}
	return Flatten(resize.Resize(uint(w), uint(h), texture, resize.Bicubic))
}

// OverlayTexture blends texture over img with factor. A nil texture leaves
// img untouched and returns it as is.
func OverlayTexture(img *image.NRGBA, texture image.Image, factor float64) *image.NRGBA {
	if texture == nil {
		return img
	}
	fitted := FitTexture(texture, img.Rect.Dx(), img.Rect.Dy())
	return Blend(img, fitted, factor)
}

// SoftFocus applies the final softening blur.
func SoftFocus(img *image.NRGBA, radius float64) *image.NRGBA {
	return GaussianBlur(img, radius)
}
