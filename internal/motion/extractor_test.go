package motion

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"media-decoder/internal/content"
	"media-decoder/internal/decode"
	"media-decoder/internal/source"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

type fakeHandle struct {
	picture    []byte
	pictureErr error
	frame      image.Image
	frameErr   error
	frameCalls atomic.Int32
	gotOffset  time.Duration
	closed     atomic.Bool
}

func (h *fakeHandle) EmbeddedPicture() ([]byte, error) { return h.picture, h.pictureErr }

func (h *fakeHandle) FrameAt(_ context.Context, offset time.Duration) (image.Image, error) {
	h.frameCalls.Add(1)
	h.gotOffset = offset
	return h.frame, h.frameErr
}

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

type fakeRetriever struct {
	handle *fakeHandle
	err    error
}

func (r *fakeRetriever) Open(context.Context, string) (Handle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.handle, nil
}

type fakeService struct {
	img      image.Image
	err      error
	calls    atomic.Int32
	gotPath  string
	gotKind  Kind
	onCalled func()
}

func (s *fakeService) Generate(_ context.Context, path string, kind Kind) (image.Image, error) {
	s.calls.Add(1)
	s.gotPath = path
	s.gotKind = kind
	if s.onCalled != nil {
		s.onCalled()
	}
	return s.img, s.err
}

type mapStore map[string]content.Row

func (m mapStore) Query(_ context.Context, loc string, _ ...string) ([]content.Row, error) {
	if row, ok := m[loc]; ok {
		return []content.Row{row}, nil
	}
	return nil, nil
}

func localPaths(store content.Store) PathResolver {
	return source.NewLocalOpener(store, nil)
}

func TestExtract_PrefersEmbeddedPicture(t *testing.T) {
	h := &fakeHandle{
		picture: pngBytes(t, 20, 10),
		frame:   image.NewNRGBA(image.Rect(0, 0, 64, 48)),
	}
	svc := &fakeService{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	e := NewExtractor(&fakeRetriever{handle: h}, svc, localPaths(nil))

	thumb, err := e.Extract(context.Background(), "file:///media/clip.mp4", "key")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if thumb.Tier != TierEmbedded {
		t.Errorf("Tier = %v, want embedded", thumb.Tier)
	}
	if b := thumb.Image.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("size = %v, want 20x10", b)
	}
	if h.frameCalls.Load() != 0 {
		t.Error("Expected no frame sample once the embedded picture decoded")
	}
	if svc.calls.Load() != 0 {
		t.Error("Expected the service not to be called")
	}
	if !h.closed.Load() {
		t.Error("Expected handle to be closed")
	}
}

func TestExtract_FallsBackToFrame(t *testing.T) {
	tests := []struct {
		name    string
		picture []byte
		picErr  error
	}{
		{name: "no picture"},
		{name: "undecodable picture", picture: []byte("not an image")},
		{name: "picture error", picErr: errors.New("corrupt tag")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandle{
				picture:    tt.picture,
				pictureErr: tt.picErr,
				frame:      image.NewNRGBA(image.Rect(0, 0, 64, 48)),
			}
			e := NewExtractor(&fakeRetriever{handle: h}, &fakeService{}, localPaths(nil), WithFrameOffset(2*time.Second))

			thumb, err := e.Extract(context.Background(), "file:///media/clip.mp4", "key")
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if thumb.Tier != TierFrame {
				t.Errorf("Tier = %v, want frame", thumb.Tier)
			}
			if h.gotOffset != 2*time.Second {
				t.Errorf("frame offset = %v, want 2s", h.gotOffset)
			}
			if !h.closed.Load() {
				t.Error("Expected handle to be closed")
			}
		})
	}
}

func TestExtract_ServiceAfterHandleClosed(t *testing.T) {
	h := &fakeHandle{frameErr: errors.New("no video stream")}
	svc := &fakeService{img: image.NewNRGBA(image.Rect(0, 0, 512, 288))}
	svc.onCalled = func() {
		if !h.closed.Load() {
			t.Error("Expected handle to be closed before the service runs")
		}
	}
	e := NewExtractor(&fakeRetriever{handle: h}, svc, localPaths(nil), WithKind(KindMicro))

	thumb, err := e.Extract(context.Background(), "file:///media/clip.mp4", "key")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if thumb.Tier != TierService {
		t.Errorf("Tier = %v, want service", thumb.Tier)
	}
	if svc.gotPath != "/media/clip.mp4" {
		t.Errorf("service path = %q", svc.gotPath)
	}
	if svc.gotKind != KindMicro {
		t.Errorf("service kind = %v, want micro", svc.gotKind)
	}
}

func TestExtract_ServiceUsesContentDataPath(t *testing.T) {
	store := mapStore{"content://media/video/5": {content.ColumnDataPath: "/sdcard/DCIM/5.mp4"}}
	svc := &fakeService{img: image.NewNRGBA(image.Rect(0, 0, 4, 4))}
	e := NewExtractor(&fakeRetriever{err: errors.New("permission denied")}, svc, localPaths(store))

	thumb, err := e.Extract(context.Background(), "content://media/video/5", "key")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if thumb.Tier != TierService || svc.gotPath != "/sdcard/DCIM/5.mp4" {
		t.Errorf("Tier = %v, path = %q", thumb.Tier, svc.gotPath)
	}
}

func TestExtract_Exhausted(t *testing.T) {
	tests := []struct {
		name      string
		retriever Retriever
		service   ThumbnailService
		store     content.Store
		loc       string
	}{
		{
			name:      "all tiers empty",
			retriever: &fakeRetriever{handle: &fakeHandle{}},
			service:   &fakeService{},
			loc:       "file:///media/clip.mp4",
		},
		{
			name:      "no data path",
			retriever: &fakeRetriever{handle: &fakeHandle{}},
			service:   &fakeService{img: image.NewNRGBA(image.Rect(0, 0, 4, 4))},
			store:     mapStore{},
			loc:       "content://media/video/9",
		},
		{
			name:      "service error",
			retriever: &fakeRetriever{err: errors.New("gone")},
			service:   &fakeService{err: errors.New("ffmpeg failed")},
			loc:       "file:///media/clip.mp4",
		},
		{
			name: "no collaborators",
			loc:  "file:///media/clip.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.retriever, tt.service, localPaths(tt.store))

			thumb, err := e.Extract(context.Background(), tt.loc, "img-1")
			if thumb != nil {
				t.Error("Expected no thumbnail")
			}
			if !errors.Is(err, decode.ErrCannotDecode) {
				t.Fatalf("error = %v, want ErrCannotDecode", err)
			}
			var de *decode.Error
			if !errors.As(err, &de) || de.Kind != decode.KindExtractionExhausted || de.Key != "img-1" {
				t.Errorf("error = %#v", err)
			}
		})
	}
}

func TestExtract_RefusesFilesOutsideRoots(t *testing.T) {
	roots := source.NewRoots(t.TempDir())
	svc := &fakeService{img: image.NewNRGBA(image.Rect(0, 0, 4, 4))}
	e := NewExtractor(&fakeRetriever{err: source.ErrOutsideRoots}, svc, source.NewLocalOpener(nil, roots))

	thumb, err := e.Extract(context.Background(), "file:///etc/hosts.mp4", "k")
	if thumb != nil {
		t.Error("Expected no thumbnail")
	}
	if !errors.Is(err, os.ErrPermission) || !errors.Is(err, decode.ErrCannotDecode) {
		t.Errorf("error = %v, want ErrCannotDecode and os.ErrPermission", err)
	}
	if svc.calls.Load() != 0 {
		t.Error("Expected the service not to run for a refused path")
	}
}

func TestExtract_HandleClosedOnExhaustion(t *testing.T) {
	h := &fakeHandle{}
	e := NewExtractor(&fakeRetriever{handle: h}, nil, localPaths(nil))

	if _, err := e.Extract(context.Background(), "https://example.com/v.mp4", "k"); err == nil {
		t.Fatal("Expected failure")
	}
	if !h.closed.Load() {
		t.Error("Expected handle to be closed")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindMini, false},
		{"mini", KindMini, false},
		{"MICRO", KindMicro, false},
		{" micro ", KindMicro, false},
		{"full", KindMini, true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestKindSize(t *testing.T) {
	if w, h, crop := KindMini.Size(); w != 512 || h != 512 || crop {
		t.Errorf("mini = %d,%d,%v", w, h, crop)
	}
	if w, h, crop := KindMicro.Size(); w != 96 || h != 96 || !crop {
		t.Errorf("micro = %d,%d,%v", w, h, crop)
	}
	if KindMini.String() != "mini" || KindMicro.String() != "micro" {
		t.Error("unexpected kind labels")
	}
}

func TestTierString(t *testing.T) {
	for tier, want := range map[Tier]string{
		TierEmbedded: "embedded",
		TierFrame:    "frame",
		TierService:  "service",
		Tier(0):      "none",
	} {
		if got := tier.String(); got != want {
			t.Errorf("Tier(%d).String() = %q, want %q", int(tier), got, want)
		}
	}
}
