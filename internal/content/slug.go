package content

import (
	"path"
	"strings"

	"github.com/goliatone/go-slug"
)

// SlugFromPath derives the canonical slug for a content file from its
// storage path: the base file name without extension, normalized.
func SlugFromPath(storagePath string) string {
	base := path.Base(strings.TrimSpace(storagePath))
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	normalized, err := slug.Normalize(base)
	if err != nil || normalized == "" {
		return strings.ToLower(base)
	}
	return normalized
}

// NormalizeSlug applies the default slug normalization rules.
func NormalizeSlug(value string) (string, error) {
	return slug.Normalize(value)
}
