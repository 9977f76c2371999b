package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/leeforge/fresson/errors"
	"github.com/leeforge/fresson/logging"
	"go.uber.org/zap"
)

// Config bounds a Pipeline.
type Config struct {
	// JPEGQuality of encoded output, 1-100.
	JPEGQuality int
	// MaxPixels rejects larger sources; 0 disables the check.
	MaxPixels int64
}

// Pipeline runs the painterly filter. It holds no per-run state and is safe
// for concurrent use.
type Pipeline struct {
	config Config
	logger logging.Logger
	stages []Stage
}

// NewPipeline creates a pipeline. A nil logger discards output.
func NewPipeline(config Config, logger logging.Logger) *Pipeline {
	if config.JPEGQuality == 0 {
		config.JPEGQuality = DefaultJPEGQuality
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		config: config,
		logger: logger.Named("pipeline"),
		stages: DefaultStages(),
	}
}

// Run applies every stage to src and returns the final image with the
// parameters drawn. src is not modified.
func (p *Pipeline) Run(ctx context.Context, src *image.NRGBA, opts Options) (*Result, error) {
	if src == nil || src.Rect.Empty() {
		return nil, errors.NewValidation("source image is empty")
	}
	if err := p.checkSize(src.Rect.Dx(), src.Rect.Dy()); err != nil {
		return nil, err
	}

	seed := NewSeed()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	mode := ModeFor(opts.PaintingLike)

	run := &Run{
		Image:   working(src),
		Texture: opts.Texture,
		Rand:    NewRand(seed),
		Profile: ProfileFor(mode),
		Params:  Params{Seed: seed, Mode: mode},
	}

	logger := p.logger.With(zap.Uint64("seed", seed), zap.String("mode", string(mode)))
	started := time.Now()
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := time.Now()
		stage.Apply(run)
		logger.Debug("stage applied",
			zap.String("stage", stage.Name()),
			zap.Duration("took", time.Since(t)),
		)
	}

	logger.Debug("run complete",
		zap.Int("width", run.Image.Rect.Dx()),
		zap.Int("height", run.Image.Rect.Dy()),
		zap.Any("params", run.Params),
		zap.Duration("took", time.Since(started)),
	)
	return &Result{Image: run.Image, Params: run.Params}, nil
}

// Process decodes input, runs the filter and encodes the result in
// opts.Format.
func (p *Pipeline) Process(ctx context.Context, input []byte, opts Options) ([]byte, *Result, error) {
	format, err := NormalizeFormat(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	w, h, err := GetDimensions(bytes.NewReader(input))
	if err != nil {
		return nil, nil, err
	}
	if err := p.checkSize(w, h); err != nil {
		return nil, nil, err
	}

	src, _, err := Decode(bytes.NewReader(input))
	if err != nil {
		return nil, nil, err
	}

	result, err := p.Run(ctx, src, opts)
	if err != nil {
		return nil, nil, err
	}

	out, err := EncodeBytes(result.Image, format, p.config.JPEGQuality)
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}

// ProcessFromFile reads the source from filePath.
func (p *Pipeline) ProcessFromFile(ctx context.Context, filePath string, opts Options) ([]byte, *Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read source: %w", err)
	}
	return p.Process(ctx, data, opts)
}

// DecodeTexture decodes a texture asset after checking its declared
// dimensions against MaxPixels, so oversized headers are rejected before any
// pixel buffer is allocated.
func (p *Pipeline) DecodeTexture(r io.Reader) (*image.NRGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	w, h, err := GetDimensions(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := p.checkSize(w, h); err != nil {
		return nil, err
	}
	return DecodeTexture(bytes.NewReader(data))
}

func (p *Pipeline) checkSize(w, h int) error {
	if p.config.MaxPixels > 0 && int64(w)*int64(h) > p.config.MaxPixels {
		return errors.NewInvalid("image", fmt.Sprintf("%dx%d", w, h), "exceeds max pixels").
			WithDetail("maxPixels", p.config.MaxPixels)
	}
	return nil
}

// working returns src when it is already a contiguous buffer at the origin,
// otherwise an opaque copy. Stages never write into their input.
func working(src *image.NRGBA) *image.NRGBA {
	if isCompact(src) {
		return src
	}
	return Flatten(src)
}
