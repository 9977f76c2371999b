package processor

import "image"

// Mode selects the parameter ranges of a run.
type Mode string

const (
	ModePainting Mode = "painting"
	ModePlain    Mode = "plain"
)

// ModeFor maps the painting_like flag to a Mode.
func ModeFor(paintingLike bool) Mode {
	if paintingLike {
		return ModePainting
	}
	return ModePlain
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Profile holds every randomized range of one mode.
type Profile struct {
	Mode Mode

	Color      Range
	Brightness Range
	Contrast   Range

	TextureStrength Range
	BrushRadius     Range
	OverlayFactor   Range
	SoftFocusRadius Range

	RedScale   Range
	GreenScale Range
	BlueScale  Range
	// RedOffset is added to the red channel.
	RedOffset Range
	// BlueOffset is subtracted from the blue channel.
	BlueOffset Range
}

var (
	PaintingProfile = Profile{
		Mode:            ModePainting,
		Color:           Range{1.1, 1.3},
		Brightness:      Range{0.9, 1.1},
		Contrast:        Range{1.1, 1.3},
		TextureStrength: Range{0.1, 0.25},
		BrushRadius:     Range{0.5, 2.0},
		OverlayFactor:   Range{0.2, 0.4},
		SoftFocusRadius: Range{0, 1},
		RedScale:        Range{0.95, 1.05},
		GreenScale:      Range{1.0, 1.1},
		BlueScale:       Range{0.9, 1.0},
		RedOffset:       Range{15, 25},
		BlueOffset:      Range{10, 20},
	}

	// PlainProfile uses milder color ranges centered on 1.0.
	PlainProfile = Profile{
		Mode:            ModePlain,
		Color:           Range{0.9, 1.1},
		Brightness:      Range{0.95, 1.05},
		Contrast:        Range{0.9, 1.1},
		TextureStrength: Range{0.05, 0.15},
		BrushRadius:     Range{0.5, 2.0},
		OverlayFactor:   Range{0.1, 0.3},
		SoftFocusRadius: Range{0, 2},
		RedScale:        Range{0.95, 1.05},
		GreenScale:      Range{1.0, 1.1},
		BlueScale:       Range{0.9, 1.0},
		RedOffset:       Range{10, 20},
		BlueOffset:      Range{5, 10},
	}
)

// ProfileFor returns the profile of mode.
func ProfileFor(mode Mode) Profile {
	if mode == ModePlain {
		return PlainProfile
	}
	return PaintingProfile
}

// Options controls a single run.
type Options struct {
	PaintingLike bool
	// Texture is blended over the image when set.
	Texture image.Image
	// Seed reproduces a previous run; nil draws a fresh seed.
	Seed *uint64
	// Format of the encoded output, "jpeg" (default) or "png".
	Format string
}

// Params records every value drawn during a run.
type Params struct {
	Seed uint64 `json:"seed,string"`
	Mode Mode   `json:"mode"`

	Color      float64 `json:"color"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`

	TextureStrength float64 `json:"textureStrength"`
	BrushRadius     float64 `json:"brushRadius"`
	// OverlayFactor stays zero when no texture was blended.
	OverlayFactor   float64 `json:"overlayFactor,omitempty"`
	SoftFocusRadius float64 `json:"softFocusRadius"`

	Balance ChannelBalance `json:"balance"`
}

// Result is the outcome of Pipeline.Run.
type Result struct {
	Image  *image.NRGBA
	Params Params
}
