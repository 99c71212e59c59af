package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"media-decoder/internal/geometry"
	"media-decoder/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageDimension is the maximum width or height of a materialized raster
	// when the request carries no target size.
	MaxImageDimension = 4096

	// MaxImagePixels caps the total pixels of a materialized raster
	MaxImagePixels = 20_000_000

	// MaxSourcePixels caps sources decoded in full by the pure Go codecs,
	// ~400MB in NRGBA. Larger sources need libvips shrink-on-load.
	MaxSourcePixels = 100_000_000
)

// BaseDecoder is the generic still-image decode path.
type BaseDecoder interface {
	// DecodeBounds reads only the header of r and returns its pixel size.
	DecodeBounds(r io.Reader) (image.Point, error)
	// Decode materializes pixels from r, sized for spec. Orientation is not applied.
	Decode(ctx context.Context, r io.ReadSeeker, spec Spec) (image.Image, error)
}

// ImageDecoder decodes with the standard library codecs through imaging and
// falls back to libvips for formats Go cannot read.
type ImageDecoder struct {
	MaxDimension    int
	MaxPixels       int
	MaxSourcePixels int
	useVips         bool
}

// NewImageDecoder creates the default base decoder.
func NewImageDecoder(useVips bool) *ImageDecoder {
	return &ImageDecoder{
		MaxDimension:    MaxImageDimension,
		MaxPixels:       MaxImagePixels,
		MaxSourcePixels: MaxSourcePixels,
		useVips:         useVips,
	}
}

// DecodeBounds returns image dimensions without fully decoding the image.
// Headers Go cannot parse are handed to libvips when it is enabled.
func (d *ImageDecoder) DecodeBounds(r io.Reader) (image.Point, error) {
	vipsOK := d.vipsEnabled()

	var head bytes.Buffer
	src := r
	if vipsOK {
		src = io.TeeReader(r, &head)
	}

	config, _, err := image.DecodeConfig(src)
	if err == nil {
		return image.Pt(config.Width, config.Height), nil
	}
	if !vipsOK {
		return image.Point{}, err
	}
	logging.Debug("image.DecodeConfig failed: %v, trying vips header", err)

	buf, rerr := io.ReadAll(io.MultiReader(&head, r))
	if rerr != nil {
		return image.Point{}, fmt.Errorf("failed to read stream: %w", rerr)
	}
	bounds, verr := BoundsWithVips(buf)
	if verr != nil {
		return image.Point{}, fmt.Errorf("%w (vips: %v)", err, verr)
	}
	return bounds, nil
}

// Decode decodes r and shrinks the result to the target (axes swapped for
// quarter turns) or, without a target, to the configured limits. With
// spec.Bounds set, oversized sources shrink during load through libvips or
// are refused before any pixels are allocated.
func (d *ImageDecoder) Decode(ctx context.Context, r io.ReadSeeker, spec Spec) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := spec.Bounds
	if bw, bh, shrink := d.fitBox(src.X, src.Y, spec); shrink && d.vipsEnabled() {
		img, err := d.shrinkWithVips(r, src, bw, bh)
		if err == nil {
			return d.constrain(img, spec), nil
		}
		logging.Debug("vips shrink-on-load failed: %v, decoding in full", err)
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind stream: %w", err)
		}
	}

	if d.MaxSourcePixels > 0 && src.X*src.Y > d.MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSourceTooLarge, src.X, src.Y)
	}

	img, err := imaging.Decode(r)
	if err != nil {
		if !d.vipsEnabled() {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		logging.Debug("imaging.Decode failed: %v, trying vips fallback", err)

		img, err = d.decodeWithVips(r)
		if err != nil {
			return nil, fmt.Errorf("all image decode methods failed: %w", err)
		}
	}

	return d.constrain(img, spec), nil
}

func (d *ImageDecoder) vipsEnabled() bool {
	return d.useVips && IsVipsAvailable()
}

func (d *ImageDecoder) readAll(r io.ReadSeeker) ([]byte, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind stream: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *ImageDecoder) decodeWithVips(r io.ReadSeeker) (image.Image, error) {
	buf, err := d.readAll(r)
	if err != nil {
		return nil, err
	}
	return LoadBufferWithVips(buf, 0, 0, false)
}

// shrinkWithVips loads r shrunk into boxW x boxH; a zero side keeps the
// source side so only the other axis constrains.
func (d *ImageDecoder) shrinkWithVips(r io.ReadSeeker, src image.Point, boxW, boxH int) (image.Image, error) {
	if boxW <= 0 {
		boxW = src.X
	}
	if boxH <= 0 {
		boxH = src.Y
	}
	buf, err := d.readAll(r)
	if err != nil {
		return nil, err
	}
	logging.Debug("Shrinking %dx%d source on load into %dx%d", src.X, src.Y, boxW, boxH)
	return LoadBufferWithVips(buf, boxW, boxH, false)
}

// fitBox returns the box a width x height raster must be scaled into, and
// false when it already fits.
func (d *ImageDecoder) fitBox(width, height int, spec Spec) (int, int, bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}

	target := spec.Target
	if IsQuarterTurn(spec.Rotation) {
		target = target.Swapped()
	}
	if !target.IsZero() {
		if (target.Width > 0 && width > target.Width) || (target.Height > 0 && height > target.Height) {
			return target.Width, target.Height, true
		}
		return 0, 0, false
	}

	needsConstraint := width > d.MaxDimension || height > d.MaxDimension || width*height > d.MaxPixels
	if !needsConstraint {
		return 0, 0, false
	}

	targetWidth, targetHeight := width, height
	if width > d.MaxDimension || height > d.MaxDimension {
		if width > height {
			targetWidth = d.MaxDimension
			targetHeight = height * d.MaxDimension / width
		} else {
			targetHeight = d.MaxDimension
			targetWidth = width * d.MaxDimension / height
		}
	}
	if pixels := targetWidth * targetHeight; pixels > d.MaxPixels {
		scale := math.Sqrt(float64(d.MaxPixels) / float64(pixels))
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}
	return targetWidth, targetHeight, true
}

func (d *ImageDecoder) constrain(img image.Image, spec Spec) image.Image {
	b := img.Bounds()
	boxW, boxH, shrink := d.fitBox(b.Dx(), b.Dy(), spec)
	if !shrink {
		return img
	}
	if spec.Target.IsZero() {
		logging.Info("Constraining large image from %dx%d to %dx%d", b.Dx(), b.Dy(), boxW, boxH)
	}
	return geometry.ScaleToFit(img, boxW, boxH)
}
