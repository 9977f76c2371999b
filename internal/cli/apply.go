package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leeforge/fresson/json"
	"github.com/leeforge/fresson/media/processor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMaxPixels = 40_000_000

type applyOptions struct {
	output  string
	texture string
	plain   bool
	seed    uint64
	quality int
	format  string
	params  string
	pixels  int64
}

func (c *CLI) applyCommand() *cobra.Command {
	var opts applyOptions

	cmd := &cobra.Command{
		Use:   "apply INPUT",
		Short: "Apply the filter to an image file",
		Long: `Apply runs the filter once on INPUT and writes the result to --output.
The seed of the run is printed so the exact result can be reproduced with --seed.`,
		Example: `  fresson apply photo.jpg -o painted.jpg
  fresson apply photo.png -o painted.png --texture canvas.jpg --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *uint64
			if cmd.Flags().Changed("seed") {
				seed = &opts.seed
			}
			return c.apply(cmd, args[0], opts, seed)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (required)")
	cmd.Flags().StringVarP(&opts.texture, "texture", "t", "", "texture image to overlay")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "use the subtle plain profile instead of the painting profile")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed to reproduce a previous run")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", processor.DefaultJPEGQuality, "JPEG quality (1-100)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: jpeg or png (default from output extension)")
	cmd.Flags().StringVar(&opts.params, "params", "", "write the drawn parameters as JSON to this file")
	cmd.Flags().Int64Var(&opts.pixels, "max-pixels", defaultMaxPixels, "reject source or texture images above this many pixels (0 disables)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *CLI) apply(cmd *cobra.Command, input string, opts applyOptions, seed *uint64) error {
	logger := c.newLogger(c.logLevel())
	defer logger.Sync()

	if opts.quality < 1 || opts.quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", opts.quality)
	}
	format, err := processor.NormalizeFormat(outputFormat(opts.format, opts.output))
	if err != nil {
		return err
	}

	pipeline := processor.NewPipeline(processor.Config{JPEGQuality: opts.quality, MaxPixels: opts.pixels}, logger)
	popts := processor.Options{
		PaintingLike: !opts.plain,
		Seed:         seed,
		Format:       format,
	}
	if opts.texture != "" {
		f, err := os.Open(opts.texture)
		if err != nil {
			return fmt.Errorf("open texture: %w", err)
		}
		tex, err := pipeline.DecodeTexture(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("texture %s: %w", opts.texture, err)
		}
		popts.Texture = tex
	}

	out, result, err := pipeline.ProcessFromFile(cmd.Context(), input, popts)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	if dir := filepath.Dir(opts.output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if opts.params != "" {
		data, err := json.MarshalIndent(&result.Params, "", "  ")
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		if err := os.WriteFile(opts.params, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write params: %w", err)
		}
	}

	logger.Info("image written",
		zap.String("input", input),
		zap.String("output", opts.output),
		zap.String("mode", string(result.Params.Mode)),
		zap.Int("bytes", len(out)),
	)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "seed: %d\n", result.Params.Seed)
	return err
}

// outputFormat prefers an explicit format, then the output extension.
func outputFormat(explicit, output string) string {
	if explicit != "" {
		return explicit
	}
	if strings.EqualFold(filepath.Ext(output), ".png") {
		return "png"
	}
	return "jpeg"
}
