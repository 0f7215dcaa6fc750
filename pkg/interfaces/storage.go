package interfaces

import "context"

// BlobRecord is a named binary payload returned by storage listings.
type BlobRecord struct {
	Path string
	Data []byte
}

// Storage is the persistence collaborator boundary. The build pipeline
// never touches a storage mechanism directly; it depends only on these
// operations. Implementations map them onto whatever actually holds the
// site records (an embedded key-value store in the editing application,
// a filesystem, a remote API).
type Storage interface {
	// GetManifest returns the raw manifest JSON for a site.
	GetManifest(ctx context.Context, siteID string) ([]byte, error)
	// PutManifest replaces the manifest record for a site.
	PutManifest(ctx context.Context, siteID string, data []byte) error

	// GetContentFiles returns every markdown content record, keyed by
	// its storage path (e.g. "content/blog/post-1.md").
	GetContentFiles(ctx context.Context, siteID string) (map[string][]byte, error)
	// GetLayoutFiles returns every layout record, keyed by path relative
	// to the layouts root (e.g. "blog/layout.json").
	GetLayoutFiles(ctx context.Context, siteID string) (map[string][]byte, error)
	// GetThemeFiles returns every theme record, keyed by path relative
	// to the themes root (e.g. "default/theme.json").
	GetThemeFiles(ctx context.Context, siteID string) (map[string][]byte, error)

	// GetImageBlob fetches a stored source image by its storage key.
	GetImageBlob(ctx context.Context, siteID, path string) ([]byte, error)
	// PutImageBlob stores a source image under the provided key.
	PutImageBlob(ctx context.Context, siteID, path string, data []byte) error

	// GetDerivative fetches a cached image derivative by cache key.
	GetDerivative(ctx context.Context, siteID, cacheKey string) ([]byte, error)
	// PutDerivative persists an image derivative under its cache key.
	PutDerivative(ctx context.Context, siteID, cacheKey string, data []byte) error
	// ListDerivatives returns every cached derivative for a site.
	ListDerivatives(ctx context.Context, siteID string) ([]BlobRecord, error)
}
