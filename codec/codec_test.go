package codec

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, gradient(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestIsSupported(t *testing.T) {
	cases := map[string]bool{
		"photo.jpg":        true,
		"IMAGE.JPG":        true,
		"a/b/scan.TIFF":    true,
		"x.jpeg":           true,
		"x.Png":            true,
		"notes.txt":        false,
		"archive.tif":      false,
		"noext":            false,
		"already.webp":     false,
		"dir.with.dots/.x": false,
	}
	for path, want := range cases {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"webp": WebP, "WEBP": WebP, "jpeg": JPEG, "jpg": JPEG} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseFormat("avif"); err == nil {
		t.Fatalf("expected error for avif")
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := Options{Format: WebP, Quality: 70, MaxWidth: 1600}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	bad := []Options{
		{Format: "gif", Quality: 70, MaxWidth: 1600},
		{Format: WebP, Quality: 0, MaxWidth: 1600},
		{Format: JPEG, Quality: 101, MaxWidth: 1600},
		{Format: JPEG, Quality: 50, MaxWidth: 0},
	}
	for _, o := range bad {
		if err := o.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", o)
		}
	}
}

func TestOutputPath(t *testing.T) {
	o := Options{Format: WebP}
	got := o.OutputPath(filepath.Join("in", "Holiday.Photo.PNG"), "/out")
	if want := filepath.Join("/out", "Holiday.Photo.webp"); got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}

	o.Format = JPEG
	if got := o.OutputPath("a.jpg", "/out"); got != filepath.Join("/out", "a.jpeg") {
		t.Fatalf("OutputPath = %q", got)
	}
}

func TestFitDoesNotEnlarge(t *testing.T) {
	small := gradient(40, 20)
	if got := Fit(small, 100); got.Bounds().Dx() != 40 {
		t.Fatalf("width = %d, want 40", got.Bounds().Dx())
	}

	got := Fit(gradient(300, 150), 100)
	b := got.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("size = %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

func TestConvertPNGToWebP(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 320, 160)

	enc, err := NewEncoder(Options{Format: WebP, Quality: 70, MaxWidth: 200})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dst := enc.Options.OutputPath(src, dir)
	if err := enc.Convert(context.Background(), src, dst); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := xwebp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode webp config: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 {
		t.Fatalf("output size = %dx%d, want 200x100", cfg.Width, cfg.Height)
	}
}

func TestConvertPNGToJPEGLimitsWidth(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	writePNG(t, src, 3000, 30)

	enc, err := NewEncoder(Options{Format: JPEG, Quality: 90, MaxWidth: 800})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dst := enc.Options.OutputPath(src, dir)
	if err := enc.Convert(context.Background(), src, dst); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width > 800 {
		t.Fatalf("output width = %d, want <= 800", cfg.Width)
	}
}

func TestConvertTIFF(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.tiff")
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tiff.Encode(f, gradient(64, 64), nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	f.Close()

	enc, _ := NewEncoder(Options{Format: JPEG, Quality: 80, MaxWidth: 1600})
	if err := enc.Convert(context.Background(), src, filepath.Join(dir, "scan.jpeg")); err != nil {
		t.Fatalf("Convert: %v", err)
	}
}

func TestConvertCorruptInputLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(src, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	enc, _ := NewEncoder(Options{Format: WebP, Quality: 70, MaxWidth: 1600})
	dst := filepath.Join(dir, "broken.webp")
	if err := enc.Convert(context.Background(), src, dst); err == nil {
		t.Fatalf("expected decode error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the source file, found %d entries", len(entries))
	}
}

func TestConvertOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 50, 50)
	dst := filepath.Join(dir, "photo.webp")
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	enc, _ := NewEncoder(Options{Format: WebP, Quality: 70, MaxWidth: 1600})
	for i := 0; i < 2; i++ {
		if err := enc.Convert(context.Background(), src, dst); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := xwebp.DecodeConfig(f); err != nil {
		t.Fatalf("output not replaced with webp: %v", err)
	}
}

func TestConvertHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc, _ := NewEncoder(Options{Format: WebP, Quality: 70, MaxWidth: 1600})
	if err := enc.Convert(ctx, src, filepath.Join(dir, "photo.webp")); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWriteAtomicDiscardsResultAfterContextEnds(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "photo.webp")
	if err := os.WriteFile(dst, []byte("previous"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	enc, _ := NewEncoder(Options{Format: WebP, Quality: 70, MaxWidth: 1600})
	ctx, cancel := context.WithCancel(context.Background())
	err := writeAtomic(ctx, dst, func(w io.Writer) error {
		defer cancel()
		return enc.Encode(w, gradient(40, 40))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "previous" {
		t.Fatalf("dst = %q, %v; want the previous content untouched", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %d entries", len(entries))
	}
}

func TestConvertPastDeadlineLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.png")
	writePNG(t, src, 3000, 2000)
	dst := filepath.Join(dir, "big.webp")

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	enc, _ := NewEncoder(Options{Format: WebP, Quality: 70, MaxWidth: 1600})
	if err := enc.Convert(ctx, src, dst); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("output written after the deadline: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the source file, found %d entries", len(entries))
	}
}
