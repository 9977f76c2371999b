package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/leeforge/fresson/errors"
	ftesting "github.com/leeforge/fresson/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var solid = ftesting.SolidImage

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x + y) % 256), 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	return ftesting.EncodePNG(t, img)
}

func seed(v uint64) *uint64 { return &v }

var midGray = color.NRGBA{128, 128, 128, 255}

func TestDecodeDropsAlpha(t *testing.T) {
	src := solid(3, 2, color.NRGBA{200, 100, 50, 10})

	img, format, err := Decode(bytes.NewReader(encodePNG(t, src)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Rect)
	assert.Equal(t, []uint8{200, 100, 50, 255}, img.Pix[:4])
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("definitely not an image")))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDecode)

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, solid(2, 2, midGray), nil))
	_, format, err := Decode(bytes.NewReader(buf.Bytes()))
	assert.Equal(t, "gif", format)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestDecodeTextureKeepsAlphaAndAcceptsGIF(t *testing.T) {
	tex, err := DecodeTexture(bytes.NewReader(encodePNG(t, solid(2, 2, color.NRGBA{1, 2, 3, 40}))))
	require.NoError(t, err)
	assert.EqualValues(t, 40, tex.Pix[3])

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, solid(5, 3, midGray), nil))
	tex, err = DecodeTexture(&buf)
	require.NoError(t, err)
	assert.Equal(t, 5, tex.Rect.Dx())
}

func TestPipelineDecodeTextureChecksPixels(t *testing.T) {
	data := encodePNG(t, solid(20, 20, midGray))

	_, err := NewPipeline(Config{MaxPixels: 100}, nil).DecodeTexture(bytes.NewReader(data))
	assert.ErrorIs(t, err, errors.ErrValidation)

	tex, err := NewPipeline(Config{MaxPixels: 400}, nil).DecodeTexture(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, tex.Rect.Dx())

	_, err = NewPipeline(Config{}, nil).DecodeTexture(bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, errors.ErrDecode)
}

func TestGetDimensions(t *testing.T) {
	w, h, err := GetDimensions(bytes.NewReader(encodePNG(t, solid(7, 3, midGray))))
	require.NoError(t, err)
	assert.Equal(t, 7, w)
	assert.Equal(t, 3, h)
}

func TestEncodeFormats(t *testing.T) {
	img := gradient(8, 8)

	jpg, err := EncodeBytes(img, "jpg", 0)
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(jpg))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	pngData, err := EncodeBytes(img, "PNG", 0)
	require.NoError(t, err)
	decoded, _, err := Decode(bytes.NewReader(pngData))
	require.NoError(t, err)
	assert.Equal(t, img.Pix, decoded.Pix)

	_, err = EncodeBytes(img, "gif", 0)
	assert.ErrorIs(t, err, errors.ErrUnsupported)

	assert.Equal(t, "image/png", ContentType("png"))
	assert.Equal(t, ".jpg", Extension("jpeg"))
}

func TestRangeDraw(t *testing.T) {
	rng := NewRand(1)
	r := Range{0.5, 2.0}
	for i := 0; i < 1000; i++ {
		assert.True(t, r.Contains(r.Draw(rng)))
	}
	assert.Equal(t, 3.0, Range{3, 3}.Draw(rng))
}

func TestEnhanceIdentityAndDegenerate(t *testing.T) {
	c := color.NRGBA{10, 200, 30, 255}
	img := solid(2, 2, c)
	l := Luma(c.R, c.G, c.B)

	for _, f := range []func(*image.NRGBA, float64) *image.NRGBA{Saturate, Brighten, Contrast} {
		assert.Equal(t, img.Pix, f(img, 1).Pix)
	}

	assert.Equal(t, []uint8{l, l, l, 255}, Saturate(img, 0).Pix[:4])
	assert.Equal(t, []uint8{0, 0, 0, 255}, Brighten(img, 0).Pix[:4])
	assert.Equal(t, []uint8{l, l, l, 255}, Contrast(img, 0).Pix[:4])
}

func TestEnhanceClampsAndTruncates(t *testing.T) {
	img := solid(1, 1, color.NRGBA{100, 200, 250, 255})

	// 100*1.5=150, 200*1.5=300->255, 250*1.5=375->255
	assert.Equal(t, []uint8{150, 255, 255, 255}, Brighten(img, 1.5).Pix)
	// 100*0.333 = 33.3 -> 33
	assert.EqualValues(t, 33, Brighten(img, 0.333).Pix[0])
}

func TestLuma(t *testing.T) {
	assert.EqualValues(t, 255, Luma(255, 255, 255))
	assert.EqualValues(t, 0, Luma(0, 0, 0))
	assert.EqualValues(t, 76, Luma(255, 0, 0))
	assert.EqualValues(t, 128, MeanLuma(solid(3, 3, midGray)))
}

func TestApplyTextureStrengthBounds(t *testing.T) {
	img := gradient(16, 9)
	noise := GenerateNoise(NewRand(7), 16, 9)

	assert.Equal(t, img.Pix, ApplyTexture(img, noise, 0).Pix)
	assert.Equal(t, noise.Pix, ApplyTexture(img, noise, 1).Pix)

	blended := ApplyTexture(solid(1, 1, color.NRGBA{100, 100, 100, 255}), solid(1, 1, color.NRGBA{200, 0, 100, 255}), 0.25)
	assert.Equal(t, []uint8{125, 75, 100, 255}, blended.Pix)
}

func TestGenerateNoiseDistribution(t *testing.T) {
	noise := GenerateNoise(NewRand(42), 64, 64)
	require.Equal(t, image.Rect(0, 0, 64, 64), noise.Rect)

	var sum, n float64
	sawLow, sawHigh := false, false
	for i := 0; i < len(noise.Pix); i += 4 {
		assert.EqualValues(t, 255, noise.Pix[i+3])
		for c := 0; c < 3; c++ {
			v := noise.Pix[i+c]
			sum += float64(v)
			n++
			sawLow = sawLow || v == 0
			sawHigh = sawHigh || v == 255
		}
	}
	mean := sum / n
	assert.InDelta(t, 127, mean, 5)
	assert.True(t, sawLow, "clipping at 0 expected with sigma 80")
	assert.True(t, sawHigh, "clipping at 255 expected with sigma 80")

	assert.Equal(t, noise.Pix, GenerateNoise(NewRand(42), 64, 64).Pix)
}

func TestGaussianBlur(t *testing.T) {
	img := gradient(10, 10)

	same := GaussianBlur(img, 0)
	assert.Equal(t, img.Pix, same.Pix)
	assert.NotSame(t, img, same)

	blurred := GaussianBlur(img, 2)
	assert.Equal(t, img.Rect, blurred.Rect)
	assert.NotEqual(t, img.Pix, blurred.Pix)

	flat := solid(6, 6, midGray)
	for _, v := range GaussianBlur(flat, 1.5).Pix {
		assert.Contains(t, []uint8{127, 128, 255}, v)
	}
}

func TestOverlayTextureNilIsIdentity(t *testing.T) {
	img := gradient(5, 5)
	before := append([]uint8(nil), img.Pix...)

	out := OverlayTexture(img, nil, 0.3)
	assert.Same(t, img, out)
	assert.Equal(t, before, out.Pix)
}

func TestFitTextureResizesToWorkingSize(t *testing.T) {
	tex := solid(30, 7, color.NRGBA{200, 100, 50, 0})

	fitted := FitTexture(tex, 8, 12)
	assert.Equal(t, image.Rect(0, 0, 8, 12), fitted.Rect)
	for i := 3; i < len(fitted.Pix); i += 4 {
		assert.EqualValues(t, 255, fitted.Pix[i])
	}

	opaque := FitTexture(solid(3, 9, color.NRGBA{200, 100, 50, 255}), 9, 3)
	assert.Equal(t, image.Rect(0, 0, 9, 3), opaque.Rect)
	assert.InDelta(t, 200, opaque.Pix[0], 1)
	assert.InDelta(t, 100, opaque.Pix[1], 1)
	assert.InDelta(t, 50, opaque.Pix[2], 1)
}

func TestChannelTransformLUT(t *testing.T) {
	identity := ChannelTransform{Scale: 1}.LUT()
	for p := range identity {
		assert.EqualValues(t, p, identity[p])
	}

	lut := ChannelTransform{Scale: 1.05, Offset: 25}.LUT()
	assert.EqualValues(t, 25, lut[0])
	assert.EqualValues(t, 255, lut[255])
	assert.EqualValues(t, 130, lut[100]) // 105 + 25

	lut = ChannelTransform{Scale: 0.9, Offset: -20}.LUT()
	assert.EqualValues(t, 0, lut[0])
	assert.EqualValues(t, 0, lut[22])
	assert.EqualValues(t, 210, lut[255]) // round(229.5 - 20)
}

func TestChannelTransformRoundsHalfToEven(t *testing.T) {
	lut := ChannelTransform{Scale: 1, Offset: 0.5}.LUT()
	assert.EqualValues(t, 0, lut[0])
	assert.EqualValues(t, 2, lut[1])
	assert.EqualValues(t, 2, lut[2])
	assert.EqualValues(t, 4, lut[3])

	lut = ChannelTransform{Scale: 0.5}.LUT()
	assert.EqualValues(t, 0, lut[1])
	assert.EqualValues(t, 2, lut[5])
}

func TestBalanceChannelsClamps(t *testing.T) {
	img := solid(2, 1, color.NRGBA{250, 5, 5, 255})
	img.Pix[4], img.Pix[5], img.Pix[6] = 0, 255, 0

	out := BalanceChannels(img, ChannelBalance{
		Red:   ChannelTransform{Scale: 1.05, Offset: 25},
		Green: ChannelTransform{Scale: 1.1},
		Blue:  ChannelTransform{Scale: 0.9, Offset: -20},
	})
	assert.Equal(t, []uint8{255, 6, 0, 255, 25, 255, 0, 255}, out.Pix)
}

func TestRunPreservesDimensions(t *testing.T) {
	p := NewPipeline(Config{}, nil)
	ctx := context.Background()

	for _, paintingLike := range []bool{true, false} {
		for _, tex := range []image.Image{nil, gradient(3, 17)} {
			res, err := p.Run(ctx, gradient(13, 6), Options{PaintingLike: paintingLike, Texture: tex})
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 13, 6), res.Image.Rect)
		}
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	p := NewPipeline(Config{}, nil)
	ctx := context.Background()
	src := gradient(12, 12)
	tex := gradient(4, 9)

	a, err := p.Run(ctx, src, Options{PaintingLike: true, Texture: tex, Seed: seed(99)})
	require.NoError(t, err)
	b, err := p.Run(ctx, src, Options{PaintingLike: true, Texture: tex, Seed: seed(99)})
	require.NoError(t, err)
	assert.Equal(t, a.Image.Pix, b.Image.Pix)
	assert.Equal(t, a.Params, b.Params)

	c, err := p.Run(ctx, src, Options{PaintingLike: true, Texture: tex, Seed: seed(100)})
	require.NoError(t, err)
	assert.NotEqual(t, a.Image.Pix, c.Image.Pix)
}

func TestRunDoesNotModifySource(t *testing.T) {
	src := gradient(8, 8)
	before := append([]uint8(nil), src.Pix...)

	_, err := NewPipeline(Config{}, nil).Run(context.Background(), src, Options{PaintingLike: true, Texture: gradient(2, 2)})
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestRunMidGrayScenario(t *testing.T) {
	src := solid(4, 4, midGray)

	res, err := NewPipeline(Config{}, nil).Run(context.Background(), src, Options{PaintingLike: true, Seed: seed(2024)})
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 4), res.Image.Rect)

	diverged := false
	for i := 0; i < len(res.Image.Pix); i += 4 {
		px := res.Image.Pix[i : i+4]
		assert.EqualValues(t, 255, px[3])
		if px[0] != 128 || px[1] != 128 || px[2] != 128 {
			diverged = true
		}
	}
	assert.True(t, diverged)
}

func TestRunParamsWithinProfile(t *testing.T) {
	p := NewPipeline(Config{}, nil)

	for _, paintingLike := range []bool{true, false} {
		res, err := p.Run(context.Background(), gradient(6, 6), Options{PaintingLike: paintingLike, Texture: gradient(2, 3), Seed: seed(5)})
		require.NoError(t, err)

		pr := ProfileFor(ModeFor(paintingLike))
		got := res.Params
		assert.Equal(t, pr.Mode, got.Mode)
		assert.EqualValues(t, 5, got.Seed)
		assert.True(t, pr.Color.Contains(got.Color))
		assert.True(t, pr.Brightness.Contains(got.Brightness))
		assert.True(t, pr.Contrast.Contains(got.Contrast))
		assert.True(t, pr.TextureStrength.Contains(got.TextureStrength))
		assert.True(t, pr.BrushRadius.Contains(got.BrushRadius))
		assert.True(t, pr.OverlayFactor.Contains(got.OverlayFactor))
		assert.True(t, pr.SoftFocusRadius.Contains(got.SoftFocusRadius))
		assert.True(t, pr.RedScale.Contains(got.Balance.Red.Scale))
		assert.True(t, pr.GreenScale.Contains(got.Balance.Green.Scale))
		assert.True(t, pr.BlueScale.Contains(got.Balance.Blue.Scale))
		assert.True(t, pr.RedOffset.Contains(got.Balance.Red.Offset))
		assert.Zero(t, got.Balance.Green.Offset)
		assert.True(t, pr.BlueOffset.Contains(-got.Balance.Blue.Offset))
	}
}

// Plain mode color ranges are not the painting ones: they are a milder
// band centered on 1.0. Changing them is a behavior change.
func TestPlainModeColorRanges(t *testing.T) {
	assert.Equal(t, Range{0.9, 1.1}, PlainProfile.Color)
	assert.Equal(t, Range{0.95, 1.05}, PlainProfile.Brightness)
	assert.Equal(t, Range{0.9, 1.1}, PlainProfile.Contrast)
	assert.NotEqual(t, PaintingProfile.Color, PlainProfile.Color)

	assert.Equal(t, Range{0.05, 0.15}, PlainProfile.TextureStrength)
	assert.Equal(t, Range{0.1, 0.3}, PlainProfile.OverlayFactor)
	assert.Equal(t, Range{0, 2}, PlainProfile.SoftFocusRadius)
	assert.Equal(t, Range{10, 20}, PlainProfile.RedOffset)
	assert.Equal(t, Range{5, 10}, PlainProfile.BlueOffset)
}

func TestRunWithoutTextureDrawsNoOverlay(t *testing.T) {
	res, err := NewPipeline(Config{}, nil).Run(context.Background(), gradient(4, 4), Options{PaintingLike: true, Seed: seed(1)})
	require.NoError(t, err)
	assert.Zero(t, res.Params.OverlayFactor)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(Config{}, nil).Run(ctx, gradient(4, 4), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsEmptyAndOversized(t *testing.T) {
	p := NewPipeline(Config{MaxPixels: 100}, nil)

	_, err := p.Run(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = p.Run(context.Background(), gradient(11, 10), Options{})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestRunAcceptsSubImage(t *testing.T) {
	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"interior", image.Rect(2, 3, 7, 9)},
		{"top crop", image.Rect(0, 0, 10, 5)},
		{"left crop", image.Rect(0, 0, 4, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := gradient(10, 10).SubImage(tt.rect).(*image.NRGBA)

			res, err := NewPipeline(Config{}, nil).Run(context.Background(), sub, Options{Seed: seed(3)})
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tt.rect.Dx(), tt.rect.Dy()), res.Image.Rect)
			assert.Len(t, res.Image.Pix, 4*tt.rect.Dx()*tt.rect.Dy())
		})
	}
}

func TestStagesHandleSharedBuffers(t *testing.T) {
	parent := gradient(6, 6)
	top := parent.SubImage(image.Rect(0, 0, 6, 3)).(*image.NRGBA)
	want := Flatten(top)

	assert.Equal(t, Saturate(want, 1.2).Pix, Saturate(top, 1.2).Pix)
	assert.Equal(t, Contrast(want, 1.2).Pix, Contrast(top, 1.2).Pix)
	assert.Equal(t, MeanLuma(want), MeanLuma(top))
	assert.Equal(t, Blend(want, want, 0.3).Pix, Blend(top, top, 0.3).Pix)

	balance := ChannelBalance{Red: ChannelTransform{Scale: 1, Offset: 10}, Green: ChannelTransform{Scale: 1}, Blue: ChannelTransform{Scale: 1}}
	assert.Equal(t, BalanceChannels(want, balance).Pix, BalanceChannels(top, balance).Pix)
}

func TestProcessRoundTrip(t *testing.T) {
	p := NewPipeline(Config{JPEGQuality: 80}, nil)
	input := encodePNG(t, gradient(9, 5))

	out, res, err := p.Process(context.Background(), input, Options{PaintingLike: true, Seed: seed(11)})
	require.NoError(t, err)
	assert.EqualValues(t, 11, res.Params.Seed)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 9, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	again, _, err := p.Process(context.Background(), input, Options{PaintingLike: true, Seed: seed(11)})
	require.NoError(t, err)
	assert.Equal(t, out, again)

	pngOut, _, err := p.Process(context.Background(), input, Options{Format: "png"})
	require.NoError(t, err)
	_, format, err = image.DecodeConfig(bytes.NewReader(pngOut))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestProcessErrors(t *testing.T) {
	p := NewPipeline(Config{MaxPixels: 10}, nil)
	ctx := context.Background()

	_, _, err := p.Process(ctx, []byte("garbage"), Options{})
	assert.ErrorIs(t, err, errors.ErrDecode)

	_, _, err = p.Process(ctx, encodePNG(t, gradient(4, 4)), Options{})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, _, err = p.Process(ctx, encodePNG(t, gradient(2, 2)), Options{Format: "bmp"})
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestProcessFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, gradient(3, 3)), 0o644))

	out, _, err := NewPipeline(Config{}, nil).ProcessFromFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, _, err = NewPipeline(Config{}, nil).ProcessFromFile(context.Background(), path+".missing", Options{})
	assert.Error(t, err)
}

func TestRunLogsEveryStage(t *testing.T) {
	logger, logs := ftesting.ObservedLogger(zapcore.DebugLevel)
	p := NewPipeline(Config{}, logger)

	_, err := p.Run(context.Background(), gradient(4, 4), Options{PaintingLike: true, Seed: seed(11), Texture: gradient(2, 2)})
	require.NoError(t, err)

	var stages []string
	for _, entry := range logs.FilterMessage("stage applied").All() {
		assert.Equal(t, "pipeline", entry.LoggerName)
		stages = append(stages, entry.ContextMap()["stage"].(string))
	}
	assert.Equal(t, []string{"color", "texture", "overlay", "soft_focus", "balance"}, stages)
	assert.Equal(t, 1, logs.FilterMessage("run complete").Len())
}

func BenchmarkRun(b *testing.B) {
	p := NewPipeline(Config{}, nil)
	src := ftesting.GradientImage(256, 256)
	tex := ftesting.GradientImage(64, 64)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(ctx, src, Options{PaintingLike: true, Texture: tex}); err != nil {
			b.Fatal(err)
		}
	}
}
