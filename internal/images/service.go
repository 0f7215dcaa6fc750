package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/sparkpress/sparkpress/internal/site"
)

var (
	// ErrUnsupportedType reports a rejected upload MIME type.
	ErrUnsupportedType = errors.New("images: unsupported image type")
	// ErrTooLarge reports an upload above the configured size ceiling.
	ErrTooLarge = errors.New("images: file exceeds size limit")
	// ErrSourceMissing reports a source image absent from storage.
	ErrSourceMissing = errors.New("images: source image not found")
	// ErrTransformTimeout reports a transform that exceeded its ceiling.
	ErrTransformTimeout = errors.New("images: transform timed out")
	// ErrServiceUnknown reports an image ref owned by an unregistered backend.
	ErrServiceUnknown = errors.New("images: unknown image service")
)

// UploadInput carries a source image into the pipeline.
type UploadInput struct {
	FileName string
	Data     []byte
}

// Service is the capability set every image backend implements. One
// implementation exists per hosting backend; selection happens once
// per manifest via the Registry lookup table.
type Service interface {
	Upload(ctx context.Context, siteID string, in UploadInput) (*site.ImageRef, error)
	GetDisplayURL(ctx context.Context, manifest *site.Manifest, ref *site.ImageRef, transform TransformOptions, export bool) (string, error)
	GetExportableAssets(ctx context.Context, siteID string, refs []site.ImageRef) ([]ExportableAsset, error)
}

// Registry maps backend service identifiers to implementations.
type Registry struct {
	services map[string]Service
	fallback string
}

// NewRegistry builds a registry whose fallback backend is "local".
func NewRegistry() *Registry {
	return &Registry{services: map[string]Service{}, fallback: ServiceLocal}
}

// Register installs a backend under its service identifier.
// Registering the same identifier twice replaces the previous entry.
func (r *Registry) Register(id string, svc Service) {
	if id == "" || svc == nil {
		return
	}
	r.services[id] = svc
}

// For selects the backend owning an image ref. Refs without a service
// identifier resolve to the fallback backend.
func (r *Registry) For(ref *site.ImageRef) (Service, error) {
	id := r.fallback
	if ref != nil && ref.ServiceID != "" {
		id = ref.ServiceID
	}
	svc, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceUnknown, id)
	}
	return svc, nil
}

// ServiceLocal is the identifier of the built-in storage-backed backend.
const ServiceLocal = "local"
