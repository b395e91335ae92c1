// Package codec decodes, resizes and re-encodes raster images.
//
// Sources are read with imaging (JPEG, PNG, TIFF and the other formats it
// registers). Output is WebP, encoded by the gen2brain WASM build of libwebp,
// or baseline JPEG.
package codec

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	_ "golang.org/x/image/tiff"
)

type Format string

const (
	WebP Format = "webp"
	JPEG Format = "jpeg"
)

// webpMethod trades encode speed for size; 4 is libwebp's default.
const webpMethod = 4

var supportedInputs = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
}

// IsSupported reports whether path has an extension the converter accepts.
// The comparison ignores case.
func IsSupported(path string) bool {
	return supportedInputs[strings.ToLower(filepath.Ext(path))]
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webp":
		return WebP, nil
	case "jpeg", "jpg":
		return JPEG, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Ext returns the file extension written for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

func (f Format) String() string {
	return string(f)
}

type Options struct {
	Format   Format
	Quality  int
	MaxWidth int
}

func (o Options) Validate() error {
	if o.Format != WebP && o.Format != JPEG {
		return fmt.Errorf("unsupported output format %q", o.Format)
	}
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("quality must be in range 1-100, got %d", o.Quality)
	}
	if o.MaxWidth < 1 {
		return fmt.Errorf("max width must be positive, got %d", o.MaxWidth)
	}
	return nil
}

// OutputPath maps src to <dir>/<basename without extension>.<format>.
func (o Options) OutputPath(src, dir string) string {
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+o.Format.Ext())
}

type Encoder struct {
	Options Options
}

func NewEncoder(opts Options) (*Encoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{Options: opts}, nil
}

// Convert decodes src, shrinks it to the configured maximum width and writes
// the encoded result to dst, replacing any existing file.
//
// The decode, resize and encode stages cannot be interrupted; ctx is checked
// between them and once more before the result replaces dst, so a conversion
// whose context ended leaves dst untouched.
func (e *Encoder) Convert(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("error decoding image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	img = Fit(img, e.Options.MaxWidth)

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeAtomic(ctx, dst, func(w io.Writer) error {
		return e.Encode(w, img)
	})
}

// Encode writes img to w in the configured format and quality.
func (e *Encoder) Encode(w io.Writer, img image.Image) error {
	switch e.Options.Format {
	case WebP:
		if err := webp.Encode(w, img, webp.Options{Quality: e.Options.Quality, Method: webpMethod}); err != nil {
			return fmt.Errorf("error encoding to WebP: %w", err)
		}
	case JPEG:
		if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(e.Options.Quality)); err != nil {
			return fmt.Errorf("error encoding to JPEG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", e.Options.Format)
	}
	return nil
}

// Fit scales img down to maxWidth keeping its aspect ratio. Images that are
// already narrow enough are returned unchanged.
func Fit(img image.Image, maxWidth int) image.Image {
	if maxWidth < 1 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

func writeAtomic(ctx context.Context, dst string, encode func(io.Writer) error) (err error) {
	tempFile, err := os.CreateTemp(filepath.Dir(dst), ".webpix-*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	closed := false
	defer func() {
		if !closed {
			tempFile.Close()
		}
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	if err = encode(tempFile); err != nil {
		return err
	}

	closed = true
	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err = os.Chmod(tempPath, 0o644); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	if err = os.Rename(tempPath, dst); err != nil {
		return fmt.Errorf("error writing %s: %w", filepath.Base(dst), err)
	}

	return nil
}
