package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"media-decoder/internal/content"
	"media-decoder/internal/decode"
	"media-decoder/internal/locator"
	"media-decoder/internal/motion"
	"media-decoder/internal/startup"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	dir := t.TempDir()
	return &startup.Config{
		DatabasePath:  filepath.Join(dir, "content.db"),
		CacheCapacity: 8,
		FFmpegPath:    "media-decoder-missing-ffmpeg",
		FrameOffset:   motion.DefaultFrameOffset,
		ThumbnailKind: motion.KindMini,
	}
}

func TestBuild_DecodesStillImage(t *testing.T) {
	config := testConfig(t)
	ctx := context.Background()

	a, err := Build(ctx, config)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	photo := filepath.Join(filepath.Dir(config.DatabasePath), "photo.png")
	writePNG(t, photo, 60, 30, color.NRGBA{G: 255, A: 255})

	res, err := a.Pipeline.Decode(ctx, decode.Request{
		Locator:             locator.FromPath(photo),
		Target:              decode.TargetSize{Width: 30, Height: 30},
		ConsiderOrientation: true,
		ImageKey:            "k",
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 30 || b.Dy() != 15 {
		t.Errorf("decoded size = %dx%d, want 30x15", b.Dx(), b.Dy())
	}
	if res.Motion {
		t.Error("a PNG should take the still-image path")
	}
	if a.ClassificationCache.Len() != 1 || a.OrientationCache.Len() != 1 {
		t.Errorf("cache sizes = %d/%d, want 1/1", a.ClassificationCache.Len(), a.OrientationCache.Len())
	}
}

func TestBuild_ContentRecordsDriveTheMotionPath(t *testing.T) {
	config := testConfig(t)
	ctx := context.Background()

	a, err := Build(ctx, config)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	uri := "content://media/external/video/7"
	if err := a.Store.Upsert(ctx, content.Record{
		URI:      uri,
		MimeType: "video/mp4",
		DataPath: filepath.Join(t.TempDir(), "missing.mp4"),
	}); err != nil {
		t.Fatal(err)
	}

	_, err = a.Pipeline.Decode(ctx, decode.Request{Locator: uri, ImageKey: "clip"})
	if !errors.Is(err, decode.ErrCannotDecode) {
		t.Fatalf("Decode() error = %v, want ErrCannotDecode", err)
	}
	if kind, _ := decode.KindOf(err); kind != decode.KindExtractionExhausted {
		t.Errorf("kind = %v, want extraction_exhausted", kind)
	}
	if isMotion, ok := a.ClassificationCache.Get(uri); !ok || !isMotion {
		t.Error("the clip should be cached as motion media")
	}
}

func TestBuild_ConfinesToMediaRoots(t *testing.T) {
	config := testConfig(t)
	config.MediaRoots = []string{t.TempDir()}
	ctx := context.Background()

	a, err := Build(ctx, config)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	inside := filepath.Join(config.MediaRoots[0], "inside.png")
	writePNG(t, inside, 8, 8, color.NRGBA{R: 255, A: 255})
	outside := filepath.Join(filepath.Dir(config.DatabasePath), "outside.png")
	writePNG(t, outside, 8, 8, color.NRGBA{B: 255, A: 255})

	if _, err := a.Pipeline.Decode(ctx, decode.Request{Locator: locator.FromPath(inside), ImageKey: "in"}); err != nil {
		t.Errorf("Decode(inside) error = %v", err)
	}

	_, err = a.Pipeline.Decode(ctx, decode.Request{Locator: locator.FromPath(outside), ImageKey: "out"})
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("Decode(outside) error = %v, want os.ErrPermission", err)
	}

	uri := "content://media/external/images/9"
	if err := a.Store.Upsert(ctx, content.Record{URI: uri, MimeType: "image/png", DataPath: outside}); err != nil {
		t.Fatal(err)
	}
	_, err = a.Pipeline.Decode(ctx, decode.Request{Locator: uri, ImageKey: "record"})
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("Decode(content record outside roots) error = %v, want os.ErrPermission", err)
	}
}

func TestBuild_LoadsOverlay(t *testing.T) {
	config := testConfig(t)
	config.OverlayPath = filepath.Join(filepath.Dir(config.DatabasePath), "play.png")
	writePNG(t, config.OverlayPath, 16, 16, color.White)

	a, err := Build(context.Background(), config)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if !a.OverlayLoaded() {
		t.Error("overlay should be loaded")
	}
}

func TestBuild_BadOverlayIsNotFatal(t *testing.T) {
	config := testConfig(t)
	config.OverlayPath = filepath.Join(filepath.Dir(config.DatabasePath), "not-an-image.png")
	if err := os.WriteFile(config.OverlayPath, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := Build(context.Background(), config)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if a.OverlayLoaded() {
		t.Error("an undecodable overlay should be skipped")
	}
}

func TestBuild_StoreFailure(t *testing.T) {
	config := testConfig(t)
	blocker := filepath.Join(filepath.Dir(config.DatabasePath), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	config.DatabasePath = filepath.Join(blocker, "content.db")

	if _, err := Build(context.Background(), config); err == nil {
		t.Error("Build() should fail when the store cannot be opened")
	}
}

func TestVolumes(t *testing.T) {
	config := &startup.Config{
		DatabasePath: "/database/content.db",
		Volumes:      map[string]string{"photos": "/mnt/photos"},
	}

	got := volumes(config)
	if got["photos"] != "/mnt/photos" || got["database"] != "/database" {
		t.Errorf("volumes() = %v", got)
	}
	if _, ok := config.Volumes["database"]; ok {
		t.Error("volumes() must not modify the config map")
	}
}
