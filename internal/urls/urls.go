// Package urls computes the canonical path segment for any content
// node, in either preview or export addressing mode. Every function is
// pure: identical inputs always produce identical output and no I/O is
// performed.
package urls

import (
	"path"
	"strconv"

	"github.com/sparkpress/sparkpress/internal/site"
)

const indexFile = "index.html"

// ForNode returns the path segment for an ordinary page. Page numbers
// are 1-based; 1 and 0 (absent) address the same page. Export mode
// produces physical file paths ending in index.html; preview mode
// produces the flat in-app route.
func ForNode(node *site.StructureNode, m *site.Manifest, export bool, pageNumber int) string {
	if node == nil {
		return ""
	}

	isHomepage := false
	if home := m.Homepage(); home != nil && home.Path == node.Path {
		isHomepage = true
	}

	segment := ""
	if !isHomepage {
		segment = node.Slug
	}
	if pageNumber > 1 {
		segment = path.Join(segment, "page", strconv.Itoa(pageNumber))
	}

	if !export {
		return segment
	}
	return path.Join(segment, indexFile)
}

// ForItem returns the path segment for a collection item:
// {collectionId}/{slug}, with the physical index.html suffix in export
// mode. Pagination never applies to items.
func ForItem(item site.CollectionItemRef, export bool) string {
	segment := path.Join(item.CollectionID, item.Slug)
	if !export {
		return segment
	}
	return path.Join(segment, indexFile)
}
