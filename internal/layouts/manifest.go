package layouts

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sparkpress/sparkpress/internal/images"
)

// Layout types supported by layout manifests.
const (
	LayoutTypeSingle     = "single"
	LayoutTypeCollection = "collection"
)

// FileRef names a file belonging to a layout or theme blueprint.
type FileRef struct {
	Path string `json:"path"`
	Type string `json:"type,omitempty"`
}

// DisplayOptions is a named variant group: a default choice plus a set
// of named template alternatives (e.g. teaser styles).
type DisplayOptions struct {
	Default string            `json:"default"`
	Choices map[string]string `json:"choices"`
}

// Resolve returns the template for the requested choice, falling back
// to the group default. Empty when neither resolves.
func (d DisplayOptions) Resolve(choice string) string {
	if template, ok := d.Choices[choice]; ok && template != "" {
		return template
	}
	if template, ok := d.Choices[d.Default]; ok {
		return template
	}
	return ""
}

// ImagePreset binds a named transform configuration to a frontmatter
// field holding an image reference.
type ImagePreset struct {
	Field     string                  `json:"field"`
	Transform images.TransformOptions `json:"transform"`
}

// LayoutManifest is the blueprint for a single page or
// collection-listing layout: its files, data schemas, display option
// variants, and image presets.
type LayoutManifest struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	LayoutType       string                    `json:"layoutType"`
	Files            []FileRef                 `json:"files"`
	FieldsSchema     json.RawMessage           `json:"fieldsSchema,omitempty"`
	ItemFieldsSchema json.RawMessage           `json:"itemFieldsSchema,omitempty"`
	DisplayOptions   map[string]DisplayOptions `json:"displayOptions,omitempty"`
	ImagePresets     map[string]ImagePreset    `json:"imagePresets,omitempty"`
}

// ThemeManifest is the blueprint for a theme: its files, declared
// config defaults, and optional image presets for site-level images.
type ThemeManifest struct {
	Name          string                 `json:"name"`
	Version       string                 `json:"version,omitempty"`
	Files         []FileRef              `json:"files"`
	DefaultConfig map[string]any         `json:"defaultConfig,omitempty"`
	ImagePresets  map[string]ImagePreset `json:"imagePresets,omitempty"`
}

// ParseLayoutManifest decodes a layout.json blueprint.
func ParseLayoutManifest(r io.Reader) (*LayoutManifest, error) {
	var manifest LayoutManifest
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("layouts: parse layout manifest: %w", err)
	}
	if manifest.ID == "" {
		return nil, fmt.Errorf("layouts: layout manifest missing id")
	}
	switch manifest.LayoutType {
	case LayoutTypeSingle, LayoutTypeCollection:
	case "":
		manifest.LayoutType = LayoutTypeSingle
	default:
		return nil, fmt.Errorf("layouts: unknown layoutType %q", manifest.LayoutType)
	}
	return &manifest, nil
}

// ParseThemeManifest decodes a theme.json blueprint.
func ParseThemeManifest(r io.Reader) (*ThemeManifest, error) {
	var manifest ThemeManifest
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("layouts: parse theme manifest: %w", err)
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("layouts: theme manifest missing name")
	}
	return &manifest, nil
}
