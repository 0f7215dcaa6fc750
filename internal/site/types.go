package site

// Manifest is the root descriptor of a site: structure, theme
// selection, collections, and publishing settings. The JSON shape is
// the portable manifest written to `_site/manifest.json` in every
// exported bundle, which makes bundles self-describing and
// re-importable.
type Manifest struct {
	SiteID           string              `json:"siteId"`
	GeneratorVersion string              `json:"generatorVersion,omitempty"`
	Title            string              `json:"title"`
	Description      string              `json:"description,omitempty"`
	BaseURL          string              `json:"baseUrl,omitempty"`
	Theme            ThemeSelection      `json:"theme"`
	Structure        []StructureNode     `json:"structure"`
	Collections      []Collection        `json:"collections,omitempty"`
	CollectionItems  []CollectionItemRef `json:"collectionItems,omitempty"`
	Logo             *ImageRef           `json:"logo,omitempty"`
	Favicon          *ImageRef           `json:"favicon,omitempty"`
	Settings         map[string]any      `json:"settings,omitempty"`
	PublishingConfig map[string]any      `json:"publishingConfig,omitempty"`
}

// ThemeSelection captures the active theme and its configuration
// overrides. Config keys map onto the theme manifest's declared
// defaults; ThemeData is free-form data exposed to templates.
type ThemeSelection struct {
	Name      string         `json:"name"`
	Config    map[string]any `json:"config,omitempty"`
	ThemeData map[string]any `json:"themeData,omitempty"`
}

// StructureNode is a tree node representing an ordinary page. Path is
// the unique storage key; NavOrder presence marks the node as a
// navigation entry.
type StructureNode struct {
	Type      string          `json:"type,omitempty"`
	Title     string          `json:"title"`
	MenuTitle string          `json:"menuTitle,omitempty"`
	Path      string          `json:"path"`
	Slug      string          `json:"slug"`
	NavOrder  *int            `json:"navOrder,omitempty"`
	Children  []StructureNode `json:"children,omitempty"`
}

// InNavigation reports whether the node is a navigation entry.
func (n *StructureNode) InNavigation() bool {
	return n != nil && n.NavOrder != nil
}

// NavigationTitle returns the menu title when present, the page title
// otherwise.
func (n *StructureNode) NavigationTitle() string {
	if n == nil {
		return ""
	}
	if n.MenuTitle != "" {
		return n.MenuTitle
	}
	return n.Title
}

// Collection is a named, path-scoped grouping of content items.
type Collection struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ContentPath       string `json:"contentPath"`
	DefaultItemLayout string `json:"defaultItemLayout,omitempty"`
}

// CollectionItemRef is a denormalized pointer into a collection. The
// set of refs is a derived index over the content files under each
// collection's ContentPath, never the authoritative structure.
type CollectionItemRef struct {
	CollectionID string `json:"collectionId"`
	Slug         string `json:"slug"`
	Path         string `json:"path"`
	Title        string `json:"title"`
}

// ImageRef points at a stored image. ServiceID selects the image
// pipeline backend that owns the source; Src is the backend-specific
// storage key.
type ImageRef struct {
	ServiceID string `json:"serviceId"`
	Src       string `json:"src"`
	Alt       string `json:"alt,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Homepage returns the first structure node, which is always the
// homepage regardless of any other node property. Nil when the
// structure is empty.
func (m *Manifest) Homepage() *StructureNode {
	if m == nil || len(m.Structure) == 0 {
		return nil
	}
	return &m.Structure[0]
}

// CollectionByID looks up a collection definition.
func (m *Manifest) CollectionByID(id string) *Collection {
	if m == nil {
		return nil
	}
	for i := range m.Collections {
		if m.Collections[i].ID == id {
			return &m.Collections[i]
		}
	}
	return nil
}

// NodeByPath walks the structure tree for the node stored at path.
func (m *Manifest) NodeByPath(path string) *StructureNode {
	if m == nil {
		return nil
	}
	return findNode(m.Structure, path)
}

func findNode(nodes []StructureNode, path string) *StructureNode {
	for i := range nodes {
		if nodes[i].Path == path {
			return &nodes[i]
		}
		if found := findNode(nodes[i].Children, path); found != nil {
			return found
		}
	}
	return nil
}
