// Package assembler builds the two data objects a render pass needs:
// the page-local context and the site-wide shell context. Both
// operations leave the manifest and content files untouched; their
// only side effects are calls into the image pipeline.
package assembler

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"unicode"

	"github.com/sparkpress/sparkpress/internal/content"
	"github.com/sparkpress/sparkpress/internal/images"
	"github.com/sparkpress/sparkpress/internal/layouts"
	"github.com/sparkpress/sparkpress/internal/logging"
	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/internal/urls"
	"github.com/sparkpress/sparkpress/pkg/interfaces"
)

const fallbackBaseURL = "http://localhost"

// Open Graph preset precedence, most specific first.
var ogPresetOrder = []string{"og_image", "banner_image"}

// Assembler resolves contexts against the image pipeline.
type Assembler struct {
	images *images.Registry
	logger interfaces.Logger
}

// New wires an assembler. A nil logger falls back to no-op.
func New(registry *images.Registry, logger interfaces.Logger) *Assembler {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Assembler{images: registry, logger: logger}
}

// PageInput carries everything a page context needs.
type PageInput struct {
	Manifest *site.Manifest
	File     *content.File
	Layout   *layouts.LayoutManifest
	Layouts  map[string]*layouts.LayoutManifest
	Files    map[string]*content.File
	Export   bool
	// Node is the structure node being rendered, needed for
	// pagination URLs on listing pages. Nil for collection items.
	Node *site.StructureNode
	// PageNumber selects the listing slice, 1-based. Zero means 1.
	PageNumber int
	// PerPage bounds items per listing page. Zero disables slicing.
	PerPage int
}

// BaseInput carries everything the shell context needs.
type BaseInput struct {
	Manifest    *site.Manifest
	Files       map[string]*content.File
	PagePath    string
	Export      bool
	ThemeConfig map[string]any
	// Theme supplies theme-level image presets for the logo and
	// favicon slots. Nil leaves both untransformed.
	Theme *layouts.ThemeManifest
}

// AssemblePageContext resolves the layout's image presets against the
// page's frontmatter and, for collection listings, prepares each item
// with its display URL and its own presets.
func (a *Assembler) AssemblePageContext(ctx context.Context, in PageInput) (*PageContext, error) {
	if in.File == nil {
		return nil, fmt.Errorf("assembler: content file required")
	}

	html, err := content.RenderMarkdown(in.File.Content)
	if err != nil {
		return nil, err
	}

	page := &PageContext{
		Title:       in.File.Title(),
		Description: in.File.Description(),
		ContentHTML: template.HTML(html),
		Frontmatter: in.File.Frontmatter,
		Images:      map[string]ResolvedImage{},
	}

	if in.Layout != nil {
		page.Images = a.resolvePresets(ctx, in.Manifest, in.Layout.ImagePresets, in.File.Frontmatter, in.Export)
	}

	if collectionID := in.File.CollectionID(); collectionID != "" {
		items, err := a.assembleItems(ctx, in, collectionID)
		if err != nil {
			return nil, err
		}
		page.Items, page.Pagination = a.paginate(items, in)
	}

	return page, nil
}

// paginate slices the full item list down to the requested page and
// computes prev/next links. Without a per-page bound every item lands
// on page one.
func (a *Assembler) paginate(items []ItemContext, in PageInput) ([]ItemContext, Pagination) {
	if in.PerPage <= 0 {
		return items, Pagination{CurrentPage: 1, TotalPages: 1}
	}

	total := (len(items) + in.PerPage - 1) / in.PerPage
	if total < 1 {
		total = 1
	}
	current := in.PageNumber
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	start := (current - 1) * in.PerPage
	end := start + in.PerPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	p := Pagination{CurrentPage: current, TotalPages: total}
	if in.Node != nil {
		if current > 1 {
			p.PrevURL = a.nodeURL(in, current-1)
		}
		if current < total {
			p.NextURL = a.nodeURL(in, current+1)
		}
	}
	return items[start:end], p
}

func (a *Assembler) nodeURL(in PageInput, page int) string {
	if in.Export {
		return urls.ForNode(in.Node, in.Manifest, true, page)
	}
	return "/" + urls.ForNode(in.Node, in.Manifest, false, page)
}

// assembleItems prepares a collection's items for a listing page,
// newest first.
func (a *Assembler) assembleItems(ctx context.Context, in PageInput, collectionID string) ([]ItemContext, error) {
	collection := in.Manifest.CollectionByID(collectionID)
	if collection == nil {
		return nil, fmt.Errorf("assembler: page %q lists unknown collection %q", in.File.Path, collectionID)
	}

	var itemLayout *layouts.LayoutManifest
	if collection.DefaultItemLayout != "" {
		itemLayout = in.Layouts[collection.DefaultItemLayout]
	}

	refs := in.Manifest.ItemsForCollection(collectionID)
	items := make([]ItemContext, 0, len(refs))
	for _, ref := range refs {
		item := ItemContext{
			Title:  ref.Title,
			URL:    a.itemURL(ref, in.Export),
			Images: map[string]ResolvedImage{},
		}
		if file, ok := in.Files[ref.Path]; ok {
			item.Date = file.Date()
			item.Description = file.Description()
			item.Frontmatter = file.Frontmatter
			if title := file.Title(); title != "" {
				item.Title = title
			}
			if itemLayout != nil {
				item.Images = a.resolvePresets(ctx, in.Manifest, itemLayout.ImagePresets, file.Frontmatter, in.Export)
			}
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

// itemURL is portable-relative in export mode and an absolute app
// route in preview mode.
func (a *Assembler) itemURL(ref site.CollectionItemRef, export bool) string {
	if export {
		return urls.ForItem(ref, true)
	}
	return "/" + urls.ForItem(ref, false)
}

// AssembleBaseContext builds the navigation tree, resolves site-level
// images, and computes head metadata for the shell template.
func (a *Assembler) AssembleBaseContext(ctx context.Context, in BaseInput) (*BaseContext, error) {
	if in.Manifest == nil {
		return nil, fmt.Errorf("assembler: manifest required")
	}

	base := &BaseContext{
		SiteTitle:       in.Manifest.Title,
		SiteDescription: in.Manifest.Description,
		Nav:             a.navigationLinks(in.Manifest.Structure, in),
		CanonicalURL:    canonicalURL(in.Manifest.BaseURL, in.PagePath),
		StyleOverrides:  styleOverrides(in.ThemeConfig),
		ThemeData:       in.Manifest.Theme.ThemeData,
	}

	if in.Manifest.Logo != nil {
		base.Logo = a.resolveRef(ctx, in.Manifest, in.Manifest.Logo, themeTransform(in.Theme, "logo"), in.Export)
	}
	if in.Manifest.Favicon != nil {
		base.Favicon = a.resolveRef(ctx, in.Manifest, in.Manifest.Favicon, themeTransform(in.Theme, "favicon"), in.Export)
	}

	base.OpenGraphImage = a.openGraphImage(ctx, in, base.Logo)
	return base, nil
}

// navigationLinks walks the structure tree. Children of collection
// listing pages are never shown in navigation; collection items reach
// their listing through the listing page itself.
func (a *Assembler) navigationLinks(nodes []site.StructureNode, in BaseInput) []NavLink {
	var links []NavLink
	for i := range nodes {
		node := &nodes[i]
		if !node.InNavigation() {
			continue
		}
		link := NavLink{
			Title: node.NavigationTitle(),
			URL:   "/" + urls.ForNode(node, in.Manifest, false, 0),
		}
		if file, ok := in.Files[node.Path]; !ok || !file.IsCollectionListing() {
			link.Children = a.navigationLinks(node.Children, in)
		}
		links = append(links, link)
	}
	return links
}

// openGraphImage picks the share image by preset-name precedence,
// falling back to the site logo.
func (a *Assembler) openGraphImage(ctx context.Context, in BaseInput, logo *ResolvedImage) string {
	home := in.Manifest.Homepage()
	if home != nil {
		if file, ok := in.Files[home.Path]; ok {
			for _, preset := range ogPresetOrder {
				if ref := imageRefFromField(file.Frontmatter, preset); ref != nil {
					if resolved := a.resolveRef(ctx, in.Manifest, ref, images.TransformOptions{}, in.Export); resolved != nil {
						return resolved.URL
					}
				}
			}
		}
	}
	if logo != nil {
		return logo.URL
	}
	return ""
}

// resolvePresets maps preset names to resolved images for every preset
// whose frontmatter field holds an image reference. Per-preset
// failures degrade to omission with a warning.
func (a *Assembler) resolvePresets(ctx context.Context, manifest *site.Manifest, presets map[string]layouts.ImagePreset, fm map[string]any, export bool) map[string]ResolvedImage {
	resolved := map[string]ResolvedImage{}
	for name, preset := range presets {
		ref := imageRefFromField(fm, preset.Field)
		if ref == nil {
			continue
		}
		image := a.resolveRef(ctx, manifest, ref, preset.Transform, export)
		if image == nil {
			continue
		}
		resolved[name] = *image
	}
	return resolved
}

func (a *Assembler) resolveRef(ctx context.Context, manifest *site.Manifest, ref *site.ImageRef, transform images.TransformOptions, export bool) *ResolvedImage {
	if a.images == nil {
		return nil
	}
	svc, err := a.images.For(ref)
	if err != nil {
		a.logger.Warn("image ref names unknown backend", "service", ref.ServiceID)
		return nil
	}
	url, err := svc.GetDisplayURL(ctx, manifest, ref, transform, export)
	if err != nil {
		a.logger.Warn("image resolution failed", "src", ref.Src, "error", err)
		return nil
	}
	return &ResolvedImage{
		URL:    url,
		Alt:    ref.Alt,
		Width:  ref.Width,
		Height: ref.Height,
	}
}

// themeTransform looks up the theme-level transform for a site image
// slot. Themes without a preset for the slot leave it untransformed.
func themeTransform(theme *layouts.ThemeManifest, slot string) images.TransformOptions {
	if theme == nil {
		return images.TransformOptions{}
	}
	return theme.ImagePresets[slot].Transform
}

// imageRefFromField decodes a frontmatter field into an image ref.
func imageRefFromField(fm map[string]any, field string) *site.ImageRef {
	if fm == nil || field == "" {
		return nil
	}
	return site.ImageRefFromValue(fm[field])
}

// canonicalURL joins the configured base URL (or the documented
// fallback) with the page's preview route.
func canonicalURL(baseURL, pagePath string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = fallbackBaseURL
	}
	pagePath = strings.Trim(pagePath, "/")
	if pagePath == "" {
		return base + "/"
	}
	return base + "/" + pagePath + "/"
}

// styleOverrides renders theme config scalars as CSS custom properties
// inlined into the document head.
func styleOverrides(config map[string]any) template.CSS {
	if len(config) == 0 {
		return ""
	}
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(":root {\n")
	wrote := false
	for _, key := range keys {
		value := cssValue(config[key])
		if value == "" {
			continue
		}
		builder.WriteString("  --")
		builder.WriteString(cssVariableName(key))
		builder.WriteString(": ")
		builder.WriteString(value)
		builder.WriteString(";\n")
		wrote = true
	}
	builder.WriteString("}")
	if !wrote {
		return ""
	}
	return template.CSS(builder.String())
}

func cssVariableName(key string) string {
	key = strings.TrimSpace(key)
	var builder strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == ' ':
			builder.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 {
				builder.WriteByte('-')
			}
			builder.WriteRune(unicode.ToLower(r))
		default:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func cssValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	}
	return ""
}
