package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/pkg/interfaces"
)

// fakeStorage is an in-memory Storage that counts the calls the image
// pipeline makes, so tests can assert how often a transform ran.
type fakeStorage struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	derivatives map[string][]byte

	blobReads      atomic.Int64
	derivativePuts atomic.Int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		blobs:       map[string][]byte{},
		derivatives: map[string][]byte{},
	}
}

func (f *fakeStorage) GetManifest(context.Context, string) ([]byte, error) { return nil, nil }
func (f *fakeStorage) PutManifest(context.Context, string, []byte) error   { return nil }
func (f *fakeStorage) GetContentFiles(context.Context, string) (map[string][]byte, error) {
	return nil, nil
}
func (f *fakeStorage) GetLayoutFiles(context.Context, string) (map[string][]byte, error) {
	return nil, nil
}
func (f *fakeStorage) GetThemeFiles(context.Context, string) (map[string][]byte, error) {
	return nil, nil
}

func (f *fakeStorage) GetImageBlob(_ context.Context, _, path string) ([]byte, error) {
	f.blobReads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("no blob %s", path)
	}
	return data, nil
}

func (f *fakeStorage) PutImageBlob(_ context.Context, _, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = data
	return nil
}

func (f *fakeStorage) GetDerivative(_ context.Context, _, cacheKey string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.derivatives[cacheKey]
	if !ok {
		return nil, fmt.Errorf("no derivative %s", cacheKey)
	}
	return data, nil
}

func (f *fakeStorage) PutDerivative(_ context.Context, _, cacheKey string, data []byte) error {
	f.derivativePuts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.derivatives[cacheKey] = data
	return nil
}

func (f *fakeStorage) ListDerivatives(context.Context, string) ([]interfaces.BlobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []interfaces.BlobRecord
	for key, data := range f.derivatives {
		records = append(records, interfaces.BlobRecord{Path: key, Data: data})
	}
	return records, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func testManifest() *site.Manifest {
	return &site.Manifest{SiteID: "site-1", Title: "Images"}
}

func TestDerivativeKeyDeterminism(t *testing.T) {
	opts := TransformOptions{Width: 300, Height: 200, Crop: CropFill}
	a := newDerivativeKey("assets/originals/photo.jpg", opts)
	b := newDerivativeKey("assets/originals/photo.jpg", opts)

	if a.String() != b.String() {
		t.Fatalf("keys differ: %q vs %q", a.String(), b.String())
	}
	if a.FileName() != "photo_w300_h200_fill.jpg" {
		t.Fatalf("file name = %q", a.FileName())
	}

	parsed, ok := parseDerivativeKey(a.String())
	if !ok {
		t.Fatalf("key %q does not parse", a.String())
	}
	if parsed.String() != a.String() {
		t.Fatalf("parse round trip: %q vs %q", parsed.String(), a.String())
	}
}

func TestDerivativeKeyNormalizesDefaults(t *testing.T) {
	bare := newDerivativeKey("a.png", TransformOptions{Width: 100})
	explicit := newDerivativeKey("a.png", TransformOptions{Width: 100, Crop: CropFit, Gravity: GravityCenter})
	if bare.String() != explicit.String() {
		t.Fatalf("default fill-in changed identity: %q vs %q", bare.String(), explicit.String())
	}
}

func TestUploadStoresOriginal(t *testing.T) {
	store := newFakeStorage()
	svc := NewLocalService(store, LocalConfig{}, nil)

	ref, err := svc.Upload(context.Background(), "site-1", UploadInput{
		FileName: "My Photo.png",
		Data:     pngBytes(t, 40, 30),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref.ServiceID != ServiceLocal {
		t.Fatalf("service = %q", ref.ServiceID)
	}
	if !strings.HasPrefix(ref.Src, "assets/originals/") || !strings.HasSuffix(ref.Src, "-my-photo.png") {
		t.Fatalf("storage key = %q", ref.Src)
	}
	if ref.Width != 40 || ref.Height != 30 {
		t.Fatalf("probed dimensions = %dx%d", ref.Width, ref.Height)
	}
	if _, err := store.GetImageBlob(context.Background(), "site-1", ref.Src); err != nil {
		t.Fatalf("original not stored: %v", err)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := NewLocalService(newFakeStorage(), LocalConfig{}, nil)

	_, err := svc.Upload(context.Background(), "site-1", UploadInput{
		FileName: "notes.txt",
		Data:     []byte("plain text"),
	})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestUploadRejectsOversizedVector(t *testing.T) {
	svc := NewLocalService(newFakeStorage(), LocalConfig{}, nil)

	big := bytes.Repeat([]byte("<svg>"), 1<<18)
	_, err := svc.Upload(context.Background(), "site-1", UploadInput{
		FileName: "huge.svg",
		Data:     big,
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestGetDisplayURLPassthrough(t *testing.T) {
	store := newFakeStorage()
	svc := NewLocalService(store, LocalConfig{}, nil)
	m := testManifest()

	vector := &site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/logo.svg"}
	url, err := svc.GetDisplayURL(context.Background(), m, vector, TransformOptions{Width: 100}, true)
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if url != "assets/images/logo.svg" {
		t.Fatalf("svg export url = %q", url)
	}

	raster := &site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/pic.png"}
	url, err = svc.GetDisplayURL(context.Background(), m, raster, TransformOptions{}, false)
	if err != nil {
		t.Fatalf("zero transform: %v", err)
	}
	if url != "/api/media/site-1/pic.png" {
		t.Fatalf("preview url = %q", url)
	}
	if store.derivativePuts.Load() != 0 {
		t.Fatal("passthrough should not compute derivatives")
	}
}

func TestGetDisplayURLComputesDerivativeOnce(t *testing.T) {
	store := newFakeStorage()
	ctx := context.Background()
	if err := store.PutImageBlob(ctx, "site-1", "assets/originals/pic.png", pngBytes(t, 64, 48)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewLocalService(store, LocalConfig{}, nil)
	m := testManifest()
	ref := &site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/pic.png"}
	opts := TransformOptions{Width: 32, Height: 24}

	first, err := svc.GetDisplayURL(ctx, m, ref, opts, true)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetDisplayURL(ctx, m, ref, opts, true)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Fatalf("urls differ: %q vs %q", first, second)
	}
	if got := store.derivativePuts.Load(); got != 1 {
		t.Fatalf("derivative computed %d times, want 1", got)
	}
}

func TestGetDisplayURLConcurrentCallersShareOneTransform(t *testing.T) {
	store := newFakeStorage()
	ctx := context.Background()
	if err := store.PutImageBlob(ctx, "site-1", "assets/originals/pic.png", pngBytes(t, 120, 80)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewLocalService(store, LocalConfig{}, nil)
	m := testManifest()
	ref := &site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/pic.png"}
	opts := TransformOptions{Width: 60, Height: 40, Crop: CropFill}

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetDisplayURL(ctx, m, ref, opts, true); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent call: %v", err)
	}
	if got := store.derivativePuts.Load(); got != 1 {
		t.Fatalf("derivative computed %d times, want 1", got)
	}
}

func TestGetDisplayURLTransformTimeout(t *testing.T) {
	store := newFakeStorage()
	ctx := context.Background()
	// Large enough that decode plus resample cannot finish inside the
	// one-nanosecond ceiling below.
	if err := store.PutImageBlob(ctx, "site-1", "assets/originals/big.png", pngBytes(t, 640, 480)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewLocalService(store, LocalConfig{TransformTimeout: time.Nanosecond}, nil)
	ref := &site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/big.png"}

	_, err := svc.GetDisplayURL(ctx, testManifest(), ref, TransformOptions{Width: 320, Height: 240}, true)
	if !errors.Is(err, ErrTransformTimeout) {
		t.Fatalf("err = %v, want ErrTransformTimeout", err)
	}
	if got := store.derivativePuts.Load(); got != 0 {
		t.Fatalf("timed out transform persisted %d derivatives, want 0", got)
	}
}

func TestGetDisplayURLMissingSource(t *testing.T) {
	svc := NewLocalService(newFakeStorage(), LocalConfig{}, nil)
	ref := &site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/gone.png"}

	_, err := svc.GetDisplayURL(context.Background(), testManifest(), ref, TransformOptions{Width: 10}, true)
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("err = %v, want ErrSourceMissing", err)
	}
}

func TestTransformNeverUpscales(t *testing.T) {
	src := pngBytes(t, 20, 10)
	out, err := transform(src, TransformOptions{Width: 2000, Height: 1000})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 20 || cfg.Height != 10 {
		t.Fatalf("output %dx%d, want source size 20x10", cfg.Width, cfg.Height)
	}
}

func TestTransformFillProducesExactBox(t *testing.T) {
	src := pngBytes(t, 100, 60)
	out, err := transform(src, TransformOptions{Width: 40, Height: 40, Crop: CropFill})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 40 {
		t.Fatalf("output %dx%d, want 40x40", cfg.Width, cfg.Height)
	}
}

func TestTransformFitPreservesAspect(t *testing.T) {
	src := pngBytes(t, 100, 50)
	out, err := transform(src, TransformOptions{Width: 40, Height: 40, Crop: CropFit})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 20 {
		t.Fatalf("output %dx%d, want 40x20", cfg.Width, cfg.Height)
	}
}

func TestGetExportableAssets(t *testing.T) {
	store := newFakeStorage()
	ctx := context.Background()
	if err := store.PutImageBlob(ctx, "site-1", "assets/originals/a.png", pngBytes(t, 30, 30)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewLocalService(store, LocalConfig{}, nil)
	m := testManifest()
	ref := site.ImageRef{ServiceID: ServiceLocal, Src: "assets/originals/a.png"}

	// Populate one derivative through the normal path.
	if _, err := svc.GetDisplayURL(ctx, m, &ref, TransformOptions{Width: 15}, true); err != nil {
		t.Fatalf("derivative: %v", err)
	}

	assets, err := svc.GetExportableAssets(ctx, "site-1", []site.ImageRef{
		ref,
		ref, // duplicate, must not duplicate output
		{ServiceID: ServiceLocal, Src: "assets/originals/missing.png"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	paths := map[string]bool{}
	for _, asset := range assets {
		paths[asset.Path] = true
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %v, want original + derivative", paths)
	}
	if !paths["assets/images/a.png"] {
		t.Fatalf("original missing from %v", paths)
	}
	if !paths["assets/images/a_w15_h0_fit.png"] {
		t.Fatalf("derivative missing from %v", paths)
	}
}
