package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-slug"
	"golang.org/x/sync/singleflight"

	"github.com/sparkpress/sparkpress/internal/logging"
	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/pkg/interfaces"
)

const (
	maxRasterBytes = 10 << 20
	maxVectorBytes = 1 << 20

	defaultTransformTimeout = 30 * time.Second

	originalPrefix  = "assets/originals"
	exportPrefix    = "assets/images"
	previewRouteFmt = "/api/media/%s/%s"
)

var supportedMIME = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// LocalConfig tunes the storage-backed image backend.
type LocalConfig struct {
	TransformTimeout time.Duration
}

// NewLocalService wires the built-in backend that stores originals and
// derivatives through the Storage collaborator.
func NewLocalService(storage interfaces.Storage, cfg LocalConfig, logger interfaces.Logger) Service {
	if cfg.TransformTimeout <= 0 {
		cfg.TransformTimeout = defaultTransformTimeout
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &localService{
		storage: storage,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

type localService struct {
	storage interfaces.Storage
	cfg     LocalConfig
	logger  interfaces.Logger
	now     func() time.Time

	// inflight dedupes concurrent derivative computations per cache
	// key: at most one transform runs for a key, every waiter shares
	// its result.
	inflight singleflight.Group
}

func (s *localService) Upload(ctx context.Context, siteID string, in UploadInput) (*site.ImageRef, error) {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.FileName, validation.Required),
		validation.Field(&in.Data, validation.Required),
	); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "images: invalid upload")
	}

	mime := detectMIME(in.FileName, in.Data)
	ext, ok := supportedMIME[mime]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	limit := maxRasterBytes
	if mime == "image/svg+xml" {
		limit = maxVectorBytes
	}
	if len(in.Data) > limit {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(in.Data), limit)
	}

	// Best effort: an undecodable header leaves dimensions at zero
	// instead of failing the upload.
	width, height := 0, 0
	if mime != "image/svg+xml" {
		width, height = probeDimensions(in.Data)
	}

	key := s.storageKey(in.FileName, ext)
	if err := s.storage.PutImageBlob(ctx, siteID, key, in.Data); err != nil {
		return nil, fmt.Errorf("images: store upload: %w", err)
	}

	return &site.ImageRef{
		ServiceID: ServiceLocal,
		Src:       key,
		Width:     width,
		Height:    height,
	}, nil
}

// storageKey derives a collision-free key from the upload timestamp
// and the slugified original file name.
func (s *localService) storageKey(fileName, ext string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	normalized, err := slug.Normalize(base)
	if err != nil || normalized == "" {
		normalized = "image"
	}
	return fmt.Sprintf("%s/%d-%s%s", originalPrefix, s.now().UnixMilli(), normalized, ext)
}

func (s *localService) GetDisplayURL(ctx context.Context, manifest *site.Manifest, ref *site.ImageRef, transform TransformOptions, export bool) (string, error) {
	if manifest == nil || ref == nil || ref.Src == "" {
		return "", fmt.Errorf("images: image ref required")
	}

	// Vector images pass through untransformed.
	if isVector(ref.Src) || transform.IsZero() {
		return s.displayPath(manifest.SiteID, path.Base(ref.Src), export), nil
	}

	key := newDerivativeKey(ref.Src, transform)
	flightKey := manifest.SiteID + "|" + key.String()

	_, err, _ := s.inflight.Do(flightKey, func() (any, error) {
		return s.ensureDerivative(ctx, manifest.SiteID, ref.Src, key)
	})
	if err != nil {
		return "", err
	}

	return s.displayPath(manifest.SiteID, key.FileName(), export), nil
}

// ensureDerivative returns cached bytes for the key, computing and
// persisting them on a miss.
func (s *localService) ensureDerivative(ctx context.Context, siteID, src string, key derivativeKey) ([]byte, error) {
	if cached, err := s.storage.GetDerivative(ctx, siteID, key.String()); err == nil && cached != nil {
		return cached, nil
	}

	source, err := s.storage.GetImageBlob(ctx, siteID, src)
	if err != nil || source == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, src)
	}

	derived, err := s.transformBounded(ctx, source, key.Options())
	if err != nil {
		return nil, err
	}

	if err := s.storage.PutDerivative(ctx, siteID, key.String(), derived); err != nil {
		return nil, fmt.Errorf("images: persist derivative %s: %w", key, err)
	}
	return derived, nil
}

// transformBounded runs the transform under the configured ceiling. A
// transform that misses the deadline is reported as failed, never
// retried silently.
func (s *localService) transformBounded(ctx context.Context, source []byte, opts TransformOptions) ([]byte, error) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TransformTimeout)
	defer cancel()

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := transform(source, opts)
		done <- outcome{data: data, err: err}
	}()

	select {
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			s.logger.Error("image transform exceeded ceiling", "timeout", s.cfg.TransformTimeout)
			return nil, ErrTransformTimeout
		}
		return nil, tctx.Err()
	case result := <-done:
		if result.err != nil {
			return nil, result.err
		}
		return result.data, nil
	}
}

func (s *localService) GetExportableAssets(ctx context.Context, siteID string, refs []site.ImageRef) ([]ExportableAsset, error) {
	byPath := map[string]ExportableAsset{}

	for _, ref := range refs {
		if ref.Src == "" {
			continue
		}
		outPath := path.Join(exportPrefix, path.Base(ref.Src))
		if _, ok := byPath[outPath]; ok {
			continue
		}
		data, err := s.storage.GetImageBlob(ctx, siteID, ref.Src)
		if err != nil || data == nil {
			// Isolated per asset: a missing source drops this entry
			// without aborting the batch.
			s.logger.Warn("skipping missing source image", "src", ref.Src)
			continue
		}
		byPath[outPath] = ExportableAsset{Path: outPath, Data: data}
	}

	derivatives, err := s.storage.ListDerivatives(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("images: list derivatives: %w", err)
	}
	for _, record := range derivatives {
		key, ok := parseDerivativeKey(record.Path)
		if !ok {
			s.logger.Warn("ignoring derivative with malformed cache key", "key", record.Path)
			continue
		}
		outPath := path.Join(exportPrefix, key.FileName())
		if _, exists := byPath[outPath]; exists {
			continue
		}
		byPath[outPath] = ExportableAsset{Path: outPath, Data: record.Data}
	}

	assets := make([]ExportableAsset, 0, len(byPath))
	for _, asset := range byPath {
		assets = append(assets, asset)
	}
	return assets, nil
}

func (s *localService) displayPath(siteID, fileName string, export bool) string {
	if export {
		return path.Join(exportPrefix, fileName)
	}
	return fmt.Sprintf(previewRouteFmt, siteID, fileName)
}

func detectMIME(fileName string, data []byte) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == ".svg" {
		return "image/svg+xml"
	}
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx > 0 {
		mime = mime[:idx]
	}
	return mime
}

func isVector(src string) bool {
	return strings.EqualFold(path.Ext(src), ".svg")
}
