package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/leeforge/fresson/errors"

	// Registered decoders.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const DefaultJPEGQuality = 90

var errEmptyImage = fmt.Errorf("image has no pixels")

// SourceFormats are the decoder names accepted for source images.
var SourceFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
	"bmp":  true,
	"tiff": true,
}

// Decode reads a source image into an opaque NRGBA buffer. The alpha
// channel is dropped, straight color is kept.
func Decode(r io.Reader) (*image.NRGBA, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, format, errors.NewDecode(err)
	}
	if !SourceFormats[format] {
		return nil, format, errors.NewUnsupported(format)
	}
	if img.Bounds().Empty() {
		return nil, format, errors.NewDecode(errEmptyImage)
	}
	return Flatten(img), format, nil
}

// DecodeTexture reads a texture asset of any registered format, alpha kept.
func DecodeTexture(r io.Reader) (*image.NRGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.NewDecode(err)
	}
	if img.Bounds().Empty() {
		return nil, errors.NewDecode(errEmptyImage)
	}
	return imaging.Clone(img), nil
}

// GetDimensions returns width and height from the image header only.
func GetDimensions(r io.Reader) (int, int, error) {
	config, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, errors.NewDecode(err)
	}
	return config.Width, config.Height, nil
}

// Flatten copies img into an NRGBA buffer at the origin with every alpha
// byte set to 255.
func Flatten(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// isCompact reports whether img starts at the origin and its Pix holds
// exactly its own rows. Sub-images share the parent buffer and fail this.
func isCompact(img *image.NRGBA) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	return img.Rect.Min == (image.Point{}) && img.Stride == 4*w && len(img.Pix) == 4*w*h
}

// compact returns img or an origin-anchored copy of it.
func compact(img *image.NRGBA) *image.NRGBA {
	if isCompact(img) {
		return img
	}
	return imaging.Clone(img)
}

// NormalizeFormat maps user supplied names to "jpeg" or "png".
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "jpeg", "jpg":
		return "jpeg", nil
	case "png":
		return "png", nil
	default:
		return "", errors.NewUnsupported(format)
	}
}

// ContentType returns the MIME type of an output format.
func ContentType(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/jpeg"
}

// Extension returns the file extension of an output format.
func Extension(format string) string {
	if format == "png" {
		return ".png"
	}
	return ".jpg"
}

// Encode writes img as JPEG or PNG. Quality only applies to JPEG; values
// outside 1..100 fall back to DefaultJPEGQuality.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	switch format {
	case "png":
		err = png.Encode(w, img)
	default:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return errors.WrapWithType(err, errors.ErrorTypeInternal, "failed to encode image")
	}
	return nil
}

// EncodeBytes is Encode into a new buffer.
func EncodeBytes(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
