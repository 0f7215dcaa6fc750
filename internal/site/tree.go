package site

import (
	"sort"
	"strings"
)

// FlattenTree returns every node of the structure tree in depth-first
// order. The returned pointers alias the tree, so edits through them
// are visible in the manifest.
func FlattenTree(nodes []StructureNode) []*StructureNode {
	var flat []*StructureNode
	var walk func(list []StructureNode)
	walk = func(list []StructureNode) {
		for i := range list {
			flat = append(flat, &list[i])
			walk(list[i].Children)
		}
	}
	walk(nodes)
	return flat
}

// RebuildCollectionIndex recomputes the denormalized collectionItems
// index from the set of known content paths. For every content file
// whose path starts with a collection's contentPath exactly one ref is
// produced. Titles are supplied by the lookup so callers can source
// them from parsed frontmatter; a missing title falls back to the
// slug. The index is sorted by path for deterministic output.
func RebuildCollectionIndex(m *Manifest, contentPaths []string, title func(path string) string) {
	if m == nil {
		return
	}
	items := make([]CollectionItemRef, 0, len(contentPaths))
	for _, path := range contentPaths {
		collection := owningCollection(m, path)
		if collection == nil {
			continue
		}
		slug := slugFromPath(path)
		itemTitle := ""
		if title != nil {
			itemTitle = title(path)
		}
		if itemTitle == "" {
			itemTitle = slug
		}
		items = append(items, CollectionItemRef{
			CollectionID: collection.ID,
			Slug:         slug,
			Path:         path,
			Title:        itemTitle,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	m.CollectionItems = items
}

// ItemsForCollection filters the derived index for a single collection.
func (m *Manifest) ItemsForCollection(collectionID string) []CollectionItemRef {
	if m == nil {
		return nil
	}
	var items []CollectionItemRef
	for _, item := range m.CollectionItems {
		if item.CollectionID == collectionID {
			items = append(items, item)
		}
	}
	return items
}

func owningCollection(m *Manifest, path string) *Collection {
	for i := range m.Collections {
		prefix := strings.TrimSuffix(m.Collections[i].ContentPath, "/") + "/"
		if strings.HasPrefix(path, prefix) {
			return &m.Collections[i]
		}
	}
	return nil
}

func slugFromPath(path string) string {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
