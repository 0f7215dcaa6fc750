// Package resolver matches URL paths against a site's structure and
// collection index, yielding the content record that should render at
// that address.
package resolver

import (
	"fmt"
	"strings"

	"github.com/sparkpress/sparkpress/internal/content"
	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/internal/urls"
)

// Kind tags the resolution outcome.
type Kind int

const (
	// KindNotFound is a first-class miss, not an error: preview mode
	// renders a 404 experience from it, export mode skips the page.
	KindNotFound Kind = iota
	// KindSingle is an ordinary page or collection item match.
	KindSingle
	// KindDynamic is reserved for taxonomy-driven pages.
	KindDynamic
)

// Resolution is the tagged result of a lookup.
type Resolution struct {
	Kind       Kind
	PageTitle  string
	File       *content.File
	LayoutPath string
	// Collection is set when the match is a collection item.
	Collection *site.Collection
	// Term carries the taxonomy term for dynamic pages.
	Term string
	// Message describes a miss, including the attempted path.
	Message string
}

// Site bundles everything a resolution needs: the manifest and the
// parsed content files keyed by storage path.
type Site struct {
	Manifest *site.Manifest
	Files    map[string]*content.File
}

// Resolve finds the content matching the joined slug segments.
// Match order, first wins: homepage for a blank slug, structure nodes
// by preview URL, collection items by preview URL. An ordinary page's
// slug therefore always beats a same-named collection item.
func Resolve(s Site, slugSegments []string) Resolution {
	joined := strings.Trim(strings.Join(slugSegments, "/"), "/")

	if joined == "" {
		return resolveHomepage(s)
	}

	for _, node := range site.FlattenTree(s.Manifest.Structure) {
		if urls.ForNode(node, s.Manifest, false, 0) != joined {
			continue
		}
		file, ok := s.Files[node.Path]
		if !ok {
			return notFound(fmt.Sprintf("no content file at %q for page %q", node.Path, joined))
		}
		return singlePage(node.Title, file)
	}

	for _, item := range s.Manifest.CollectionItems {
		if urls.ForItem(item, false) != joined {
			continue
		}
		file, ok := s.Files[item.Path]
		if !ok {
			return notFound(fmt.Sprintf("no content file at %q for item %q", item.Path, joined))
		}
		resolution := singlePage(item.Title, file)
		resolution.Collection = s.Manifest.CollectionByID(item.CollectionID)
		if resolution.LayoutPath == "" && resolution.Collection != nil {
			resolution.LayoutPath = resolution.Collection.DefaultItemLayout
		}
		return resolution
	}

	return notFound(fmt.Sprintf("no page or collection item matches %q", joined))
}

func resolveHomepage(s Site) Resolution {
	home := s.Manifest.Homepage()
	if home == nil {
		return notFound("site has no structure nodes")
	}
	file, ok := s.Files[home.Path]
	if !ok {
		return notFound(fmt.Sprintf("no content file at homepage path %q", home.Path))
	}
	return singlePage(home.Title, file)
}

func singlePage(title string, file *content.File) Resolution {
	if fmTitle := file.Title(); fmTitle != "" {
		title = fmTitle
	}
	return Resolution{
		Kind:       KindSingle,
		PageTitle:  title,
		File:       file,
		LayoutPath: file.Layout(),
	}
}

func notFound(message string) Resolution {
	return Resolution{Kind: KindNotFound, Message: message}
}
