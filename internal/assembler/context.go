package assembler

import (
	"html/template"
	"time"
)

// ResolvedImage is a preset resolved to its final display URL plus the
// dimensions known for the source.
type ResolvedImage struct {
	URL    string
	Alt    string
	Width  int
	Height int
}

// ItemContext is one collection item prepared for a listing page.
type ItemContext struct {
	Title       string
	Description string
	URL         string
	Date        time.Time
	Frontmatter map[string]any
	Images      map[string]ResolvedImage
}

// Pagination describes where a listing page sits in its page run.
// Zero TotalPages means the page is not paginated.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	PrevURL     string
	NextURL     string
}

// PageContext is the page-local data a render pass consumes: the
// rendered body, the raw frontmatter, resolved image presets, and (for
// collection listings) the prepared items for the current page.
type PageContext struct {
	Title       string
	Description string
	ContentHTML template.HTML
	Frontmatter map[string]any
	Images      map[string]ResolvedImage
	Items       []ItemContext
	Pagination  Pagination
}

// NavLink is one entry of the site navigation tree.
type NavLink struct {
	Title    string
	URL      string
	Children []NavLink
}

// BaseContext is the site-wide shell every page render shares:
// navigation, head metadata, and theme style overrides.
type BaseContext struct {
	SiteTitle       string
	SiteDescription string
	Nav             []NavLink
	Logo            *ResolvedImage
	Favicon         *ResolvedImage
	CanonicalURL    string
	StyleOverrides  template.CSS
	OpenGraphImage  string
	ThemeData       map[string]any
}
