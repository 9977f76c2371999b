package processor

import (
	"image"
	"math"
)

// ChannelTransform maps p to clamp(round(p*Scale + Offset)). Halves round
// to even.
type ChannelTransform struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// LUT tabulates the transform for all 256 channel values.
func (t ChannelTransform) LUT() [256]uint8 {
	var lut [256]uint8
	for p := range lut {
		v := math.RoundToEven(float64(p)*t.Scale + t.Offset)
		switch {
		case v < 0:
			lut[p] = 0
		case v > 255:
			lut[p] = 255
		default:
			lut[p] = uint8(v)
		}
	}
	return lut
}

// ChannelBalance holds the independent transform of each channel.
type ChannelBalance struct {
	Red   ChannelTransform `json:"red"`
	Green ChannelTransform `json:"green"`
	Blue  ChannelTransform `json:"blue"`
}

// BalanceChannels applies b to the R, G and B planes of img.
func BalanceChannels(img *image.NRGBA, b ChannelBalance) *image.NRGBA {
	red, green, blue := b.Red.LUT(), b.Green.LUT(), b.Blue.LUT()

	img = compact(img)
	dst := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		dst.Pix[i] = red[img.Pix[i]]
		dst.Pix[i+1] = green[img.Pix[i+1]]
		dst.Pix[i+2] = blue[img.Pix[i+2]]
		dst.Pix[i+3] = 0xff
	}
	return dst
}
