package site

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ParseManifest decodes manifest JSON into the canonical structure.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("site: parse manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Marshal serializes the manifest for persistence or bundle export.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("site: marshal manifest: %w", err)
	}
	return data, nil
}

// Validate enforces the structural invariants a build depends on.
func (m *Manifest) Validate() error {
	err := validation.ValidateStruct(m,
		validation.Field(&m.SiteID, validation.Required),
		validation.Field(&m.Title, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("site: invalid manifest: %w", err)
	}
	if m.Theme.Name == "" {
		return fmt.Errorf("site: invalid manifest: theme name required")
	}
	seen := make(map[string]struct{}, len(m.Collections))
	for _, collection := range m.Collections {
		if collection.ID == "" {
			return fmt.Errorf("site: invalid manifest: collection missing id")
		}
		if _, dup := seen[collection.ID]; dup {
			return fmt.Errorf("site: invalid manifest: duplicate collection id %q", collection.ID)
		}
		seen[collection.ID] = struct{}{}
	}
	for _, item := range m.CollectionItems {
		if _, ok := seen[item.CollectionID]; !ok {
			return fmt.Errorf("site: invalid manifest: item %q references unknown collection %q", item.Path, item.CollectionID)
		}
	}
	return nil
}
