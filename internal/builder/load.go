package builder

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sparkpress/sparkpress/internal/assembler"
	"github.com/sparkpress/sparkpress/internal/content"
	"github.com/sparkpress/sparkpress/internal/layouts"
	"github.com/sparkpress/sparkpress/internal/render"
	"github.com/sparkpress/sparkpress/internal/site"
)

// buildContext is the synchronized view of a site a single build works
// from. It is assembled once per Build call; nothing in it is shared
// between builds.
type buildContext struct {
	manifest        *site.Manifest
	files           map[string]*content.File
	dataFiles       map[string][]byte
	parseFailures   map[string]error
	layoutManifests map[string]*layouts.LayoutManifest
	fieldSchemas    map[string]*jsonschema.Schema
	themeManifest   *layouts.ThemeManifest
	layoutFiles     map[string][]byte
	themeFiles      map[string][]byte
	session         *render.Session
	assembler       *assembler.Assembler
	generatedAt     time.Time
}

func (s *service) loadContext(ctx context.Context, siteID string) (*buildContext, error) {
	manifestData, err := s.deps.Storage.GetManifest(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("builder: load manifest for %s: %w", siteID, err)
	}
	manifest, err := site.ParseManifest(manifestData)
	if err != nil {
		return nil, err
	}

	records, err := s.deps.Storage.GetContentFiles(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("builder: load content for %s: %w", siteID, err)
	}
	markdown := map[string][]byte{}
	dataFiles := map[string][]byte{}
	for path, data := range records {
		if strings.HasSuffix(path, ".md") {
			markdown[path] = data
			continue
		}
		dataFiles[path] = data
	}
	files, failures := content.ParseAll(markdown)
	for path, parseErr := range failures {
		s.logger.Warn("skipping unparseable content file", "path", path, "error", parseErr)
	}

	layoutFiles, err := s.deps.Storage.GetLayoutFiles(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("builder: load layouts for %s: %w", siteID, err)
	}
	themeFiles, err := s.deps.Storage.GetThemeFiles(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("builder: load theme for %s: %w", siteID, err)
	}

	layoutManifests := map[string]*layouts.LayoutManifest{}
	fieldSchemas := map[string]*jsonschema.Schema{}
	for path, data := range layoutFiles {
		if !strings.HasSuffix(path, "layout.json") {
			continue
		}
		layoutManifest, parseErr := layouts.ParseLayoutManifest(bytes.NewReader(data))
		if parseErr != nil {
			s.logger.Warn("skipping unparseable layout manifest", "path", path, "error", parseErr)
			continue
		}
		layoutManifests[layoutManifest.ID] = layoutManifest
		schema, _, schemaErr := layoutManifest.FieldSchemas()
		if schemaErr != nil {
			s.logger.Warn("layout schema does not compile", "layout", layoutManifest.ID, "error", schemaErr)
			continue
		}
		fieldSchemas[layoutManifest.ID] = schema
	}

	var themeManifest *layouts.ThemeManifest
	themeManifestPath := manifest.Theme.Name + "/theme.json"
	if data, ok := themeFiles[themeManifestPath]; ok {
		themeManifest, err = layouts.ParseThemeManifest(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	}

	// One merged view of the theme config for the whole build.
	var defaults map[string]any
	if themeManifest != nil {
		defaults = themeManifest.DefaultConfig
	}
	synchronized, err := manifest.Synchronized(defaults)
	if err != nil {
		return nil, err
	}

	bc := &buildContext{
		manifest:        synchronized,
		files:           files,
		dataFiles:       dataFiles,
		parseFailures:   failures,
		layoutManifests: layoutManifests,
		fieldSchemas:    fieldSchemas,
		themeManifest:   themeManifest,
		layoutFiles:     layoutFiles,
		themeFiles:      themeFiles,
		session:         render.NewSession(s.logger),
		assembler:       assembler.New(s.deps.Images, s.logger),
		generatedAt:     s.now().UTC(),
	}

	s.registerTemplates(ctx, bc, true)
	return bc, nil
}

// registerTemplates loads every theme and layout template plus the
// built-in fallbacks into the session, then registers helpers and
// compiles once so concurrent page renders only read.
func (s *service) registerTemplates(ctx context.Context, bc *buildContext, export bool) {
	themePrefix := bc.manifest.Theme.Name + "/"
	for path, data := range bc.themeFiles {
		if !strings.HasPrefix(path, themePrefix) || !strings.HasSuffix(path, ".html") {
			continue
		}
		rel := strings.TrimPrefix(path, themePrefix)
		switch {
		case rel == "index.html":
			bc.session.RegisterTemplate(shellTemplateName(bc.manifest.Theme.Name), string(data))
		case strings.HasPrefix(rel, "partials/"):
			name := templateBaseName(rel)
			bc.session.RegisterPartial(bc.manifest.Theme.Name, name, string(data))
		}
	}

	for path, data := range bc.layoutFiles {
		if !strings.HasSuffix(path, ".html") {
			continue
		}
		layoutID, rel, ok := strings.Cut(path, "/")
		if !ok {
			continue
		}
		switch {
		case rel == "index.html":
			bc.session.RegisterTemplate(layoutID, string(data))
		case strings.HasPrefix(rel, "partials/"):
			bc.session.RegisterPartial(layoutID, templateBaseName(rel), string(data))
		}
	}

	bc.session.RegisterTemplate(defaultPageTemplate, defaultPageSource)
	s.registerHelpers(ctx, bc, export)
}

func shellTemplateName(theme string) string {
	return "theme/" + theme
}

func templateBaseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	return strings.TrimSuffix(path, ".html")
}
