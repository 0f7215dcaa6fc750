package builder

import (
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/sparkpress/sparkpress/internal/assembler"
	"github.com/sparkpress/sparkpress/internal/content"
	"github.com/sparkpress/sparkpress/internal/images"
	"github.com/sparkpress/sparkpress/internal/layouts"
	"github.com/sparkpress/sparkpress/internal/resolver"
	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/internal/urls"
)

const defaultPageTemplate = "builtin/page"

// defaultPageSource renders pages whose frontmatter declares no layout.
// It is registered in every session so a minimal site with no layout
// packs installed still produces a complete document.
const defaultPageSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Page.Title }}{{ if .Site.SiteTitle }} | {{ .Site.SiteTitle }}{{ end }}</title>
{{ if .Page.Description }}<meta name="description" content="{{ .Page.Description }}">{{ end }}
{{ if .Site.CanonicalURL }}<link rel="canonical" href="{{ .Site.CanonicalURL }}">{{ end }}
</head>
<body>
<main>
<h1>{{ .Page.Title }}</h1>
{{ .Page.ContentHTML }}
</main>
</body>
</html>
`

// TemplateData is the root value every layout and shell template
// executes against. Content is only set for the shell pass, holding
// the already rendered layout output.
type TemplateData struct {
	Site    *assembler.BaseContext
	Page    *assembler.PageContext
	RelRoot string
	Content template.HTML
}

// registerHelpers installs the helper set every template can call.
// Helpers close over the build context, so registration happens after
// the context is loaded and before the session compiles.
func (s *service) registerHelpers(ctx context.Context, bc *buildContext, export bool) {
	session := bc.session

	session.RegisterHelper("partial", func(ownerID, name string, data any) (template.HTML, error) {
		out, err := session.RenderPartial(ownerID, name, data)
		if err != nil {
			return "", err
		}
		return template.HTML(out), nil
	})

	session.RegisterHelper("imageFor", func(value any, width, height int, crop string) (string, error) {
		ref := site.ImageRefFromValue(value)
		if ref == nil {
			return "", nil
		}
		svc, err := s.deps.Images.For(ref)
		if err != nil {
			return "", err
		}
		opts := images.TransformOptions{Width: width, Height: height, Crop: crop}
		return svc.GetDisplayURL(ctx, bc.manifest, ref, opts, export)
	})

	session.RegisterHelper("displayOption", func(layoutID, group string) string {
		layout, ok := bc.layoutManifests[layoutID]
		if !ok {
			return ""
		}
		opts, ok := layout.DisplayOptions[group]
		if !ok {
			return ""
		}
		return opts.Resolve("")
	})

	session.RegisterHelper("safeHTML", func(v string) template.HTML {
		return template.HTML(v)
	})
}

const defaultItemsPerPage = 10

// pageTarget is one output document: a structure node (possibly one
// page of a paginated listing) or a collection item. route stays the
// unpaginated preview route so resolution and the sitemap see one
// logical page per node.
type pageTarget struct {
	route       string
	exportPath  string
	contentPath string
	pageNum     int
	perPage     int
	homepage    bool
}

func pageTargets(m *site.Manifest, files map[string]*content.File) []pageTarget {
	var targets []pageTarget
	for i, node := range site.FlattenTree(m.Structure) {
		base := pageTarget{
			route:       urls.ForNode(node, m, false, 0),
			exportPath:  urls.ForNode(node, m, true, 0),
			contentPath: node.Path,
			pageNum:     1,
			homepage:    i == 0 && node == m.Homepage(),
		}

		file, ok := files[node.Path]
		if !ok || !file.IsCollectionListing() {
			targets = append(targets, base)
			continue
		}

		perPage := file.ItemsPerPage()
		if perPage <= 0 {
			perPage = defaultItemsPerPage
		}
		base.perPage = perPage
		total := (len(m.ItemsForCollection(file.CollectionID())) + perPage - 1) / perPage
		if total < 1 {
			total = 1
		}
		targets = append(targets, base)
		for page := 2; page <= total; page++ {
			extra := base
			extra.exportPath = urls.ForNode(node, m, true, page)
			extra.pageNum = page
			extra.homepage = false
			targets = append(targets, extra)
		}
	}
	for _, item := range m.CollectionItems {
		targets = append(targets, pageTarget{
			route:       urls.ForItem(item, false),
			exportPath:  urls.ForItem(item, true),
			contentPath: item.Path,
			pageNum:     1,
		})
	}
	return targets
}

// renderPage resolves one target, assembles its contexts, and runs the
// two-stage template expansion: layout first, then the theme shell
// wrapping the layout's output.
func (s *service) renderPage(ctx context.Context, bc *buildContext, t pageTarget) (string, *Diagnostic) {
	started := time.Now()
	diag := &Diagnostic{Route: t.route, OutputPath: t.exportPath}

	var segments []string
	if t.route != "" {
		segments = strings.Split(t.route, "/")
	}
	res := resolver.Resolve(resolver.Site{Manifest: bc.manifest, Files: bc.files}, segments)
	if res.Kind == resolver.KindNotFound {
		diag.Skipped = true
		diag.Message = res.Message
		diag.Duration = time.Since(started)
		return "", diag
	}
	if res.File != nil && !res.File.Published() {
		diag.Skipped = true
		diag.Message = "draft, not published"
		diag.Duration = time.Since(started)
		return "", diag
	}

	templateName := defaultPageTemplate
	var layout *layouts.LayoutManifest
	if res.LayoutPath != "" {
		templateName = res.LayoutPath
		layout = bc.layoutManifests[res.LayoutPath]
		if layout != nil && res.File != nil {
			if err := layouts.ValidateFields(bc.fieldSchemas[res.LayoutPath], res.File.Frontmatter); err != nil {
				s.logger.Warn("frontmatter fails layout schema",
					"path", res.File.Path, "layout", res.LayoutPath, "error", err)
			}
		}
	}

	page, err := bc.assembler.AssemblePageContext(ctx, assembler.PageInput{
		Manifest:   bc.manifest,
		File:       res.File,
		Layout:     layout,
		Layouts:    bc.layoutManifests,
		Files:      bc.files,
		Export:     true,
		Node:       bc.manifest.NodeByPath(t.contentPath),
		PageNumber: t.pageNum,
		PerPage:    t.perPage,
	})
	if err != nil {
		diag.Err = err
		diag.Duration = time.Since(started)
		return "", diag
	}

	themeConfig := map[string]any{}
	if bc.manifest.Theme.Config != nil {
		themeConfig = bc.manifest.Theme.Config
	}
	base, err := bc.assembler.AssembleBaseContext(ctx, assembler.BaseInput{
		Manifest:    bc.manifest,
		Files:       bc.files,
		PagePath:    t.route,
		Export:      true,
		ThemeConfig: themeConfig,
		Theme:       bc.themeManifest,
	})
	if err != nil {
		diag.Err = err
		diag.Duration = time.Since(started)
		return "", diag
	}

	data := TemplateData{
		Site:    base,
		Page:    page,
		RelRoot: relativeRoot(t.exportPath),
	}
	inner, err := bc.session.Render(templateName, data)
	if err != nil {
		diag.Err = err
		diag.Duration = time.Since(started)
		return "", diag
	}

	shell := shellTemplateName(bc.manifest.Theme.Name)
	html := inner
	if bc.session.Has(shell) {
		data.Content = template.HTML(inner)
		html, err = bc.session.Render(shell, data)
		if err != nil {
			diag.Err = err
			diag.Duration = time.Since(started)
			return "", diag
		}
	}

	diag.Duration = time.Since(started)
	return html, diag
}
