package processor

import (
	"image"
	"math/rand/v2"
)

// Run is the state of one pipeline invocation, handed from stage to stage.
type Run struct {
	Image   *image.NRGBA
	Texture image.Image
	Rand    *rand.Rand
	Profile Profile
	Params  Params
}

// Stage is one step of the filter. Stages draw their parameters from
// run.Rand, record them in run.Params and replace run.Image.
type Stage interface {
	Name() string
	Apply(run *Run)
}

// ColorAdjuster applies randomized saturation, brightness and contrast.
type ColorAdjuster struct{}

func (ColorAdjuster) Name() string { return "color" }

func (ColorAdjuster) Apply(run *Run) {
	p := &run.Params
	p.Color = run.Profile.Color.Draw(run.Rand)
	p.Brightness = run.Profile.Brightness.Draw(run.Rand)
	p.Contrast = run.Profile.Contrast.Draw(run.Rand)
	run.Image = AdjustColor(run.Image, p.Color, p.Brightness, p.Contrast)
}

// TextureCompositor blends Gaussian noise into the image, then blurs it.
type TextureCompositor struct{}

func (TextureCompositor) Name() string { return "texture" }

func (TextureCompositor) Apply(run *Run) {
	p := &run.Params
	p.TextureStrength = run.Profile.TextureStrength.Draw(run.Rand)
	noise := GenerateNoise(run.Rand, run.Image.Rect.Dx(), run.Image.Rect.Dy())
	p.BrushRadius = run.Profile.BrushRadius.Draw(run.Rand)
	run.Image = Brushstroke(ApplyTexture(run.Image, noise, p.TextureStrength), p.BrushRadius)
}

// TextureBlender overlays the optional texture asset. Without one it draws
// nothing and leaves the image as is.
type TextureBlender struct{}

func (TextureBlender) Name() string { return "overlay" }

func (TextureBlender) Apply(run *Run) {
	if run.Texture == nil {
		return
	}
	run.Params.OverlayFactor = run.Profile.OverlayFactor.Draw(run.Rand)
	run.Image = OverlayTexture(run.Image, run.Texture, run.Params.OverlayFactor)
}

// SoftFocusStage applies a second, independent blur.
type SoftFocusStage struct{}

func (SoftFocusStage) Name() string { return "soft_focus" }

func (SoftFocusStage) Apply(run *Run) {
	run.Params.SoftFocusRadius = run.Profile.SoftFocusRadius.Draw(run.Rand)
	run.Image = SoftFocus(run.Image, run.Params.SoftFocusRadius)
}

// ChannelBalancer shifts each channel by a random scale and offset.
type ChannelBalancer struct{}

func (ChannelBalancer) Name() string { return "balance" }

func (ChannelBalancer) Apply(run *Run) {
	pr := run.Profile
	b := ChannelBalance{
		Red:   ChannelTransform{Scale: pr.RedScale.Draw(run.Rand)},
		Green: ChannelTransform{Scale: pr.GreenScale.Draw(run.Rand)},
		Blue:  ChannelTransform{Scale: pr.BlueScale.Draw(run.Rand)},
	}
	b.Red.Offset = pr.RedOffset.Draw(run.Rand)
	b.Blue.Offset = -pr.BlueOffset.Draw(run.Rand)

	run.Params.Balance = b
	run.Image = BalanceChannels(run.Image, b)
}

// DefaultStages is the fixed stage order of every run.
func DefaultStages() []Stage {
	return []Stage{
		ColorAdjuster{},
		TextureCompositor{},
		TextureBlender{},
		SoftFocusStage{},
		ChannelBalancer{},
	}
}
