package processor

import "image"

// Luma returns the ITU-R 601-2 luma of an 8-bit RGB triple.
func Luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// blendChannel interpolates from a toward b: a + alpha*(b-a), clamped and
// truncated to 8 bits.
func blendChannel(a, b uint8, alpha float64) uint8 {
	v := float64(a) + alpha*(float64(b)-float64(a))
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Saturate scales color saturation by factor around each pixel's luma.
// Factor 0 yields grayscale, 1 the original.
func Saturate(img *image.NRGBA, factor float64) *image.NRGBA {
	img = compact(img)
	dst := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r, g, b := img.Pix[i], img.Pix[i+1], img.Pix[i+2]
		l := Luma(r, g, b)
		dst.Pix[i] = blendChannel(l, r, factor)
		dst.Pix[i+1] = blendChannel(l, g, factor)
		dst.Pix[i+2] = blendChannel(l, b, factor)
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// Brighten scales every channel toward or away from black.
func Brighten(img *image.NRGBA, factor float64) *image.NRGBA {
	img = compact(img)
	dst := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		dst.Pix[i] = blendChannel(0, img.Pix[i], factor)
		dst.Pix[i+1] = blendChannel(0, img.Pix[i+1], factor)
		dst.Pix[i+2] = blendChannel(0, img.Pix[i+2], factor)
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// Contrast scales every channel around the mean luma of the image.
func Contrast(img *image.NRGBA, factor float64) *image.NRGBA {
	img = compact(img)
	mean := MeanLuma(img)
	dst := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		dst.Pix[i] = blendChannel(mean, img.Pix[i], factor)
		dst.Pix[i+1] = blendChannel(mean, img.Pix[i+1], factor)
		dst.Pix[i+2] = blendChannel(mean, img.Pix[i+2], factor)
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// MeanLuma is the rounded average luma over all pixels.
func MeanLuma(img *image.NRGBA) uint8 {
	img = compact(img)
	var sum uint64
	n := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		sum += uint64(Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
		n++
	}
	if n == 0 {
		return 0
	}
	return uint8(float64(sum)/float64(n) + 0.5)
}

// AdjustColor applies saturation, brightness and contrast in that order.
func AdjustColor(img *image.NRGBA, color, brightness, contrast float64) *image.NRGBA {
	return Contrast(Brighten(Saturate(img, color), brightness), contrast)
}
