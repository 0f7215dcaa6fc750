package site

import (
	"fmt"

	"dario.cat/mergo"
)

// MergeThemeConfig layers the site's theme overrides on top of the
// theme's declared defaults, producing the single synchronized config
// view used for an entire build. Neither input map is mutated.
func MergeThemeConfig(defaults, overrides map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(defaults)+len(overrides))
	if err := mergo.Map(&merged, defaults); err != nil {
		return nil, fmt.Errorf("site: merge theme defaults: %w", err)
	}
	if err := mergo.Map(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("site: merge theme overrides: %w", err)
	}
	return merged, nil
}

// Synchronized returns a copy of the manifest whose theme config has
// been merged with the supplied defaults. The receiver is left
// untouched so callers keep an unmodified view of the stored manifest.
func (m *Manifest) Synchronized(themeDefaults map[string]any) (*Manifest, error) {
	if m == nil {
		return nil, fmt.Errorf("site: manifest required")
	}
	merged, err := MergeThemeConfig(themeDefaults, m.Theme.Config)
	if err != nil {
		return nil, err
	}
	clone := *m
	clone.Theme.Config = merged
	return &clone, nil
}
