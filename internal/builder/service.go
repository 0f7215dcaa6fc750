package builder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sparkpress/sparkpress/internal/images"
	"github.com/sparkpress/sparkpress/internal/logging"
	"github.com/sparkpress/sparkpress/internal/urls"
	"github.com/sparkpress/sparkpress/pkg/interfaces"
)

// Config tunes a builder service. Zero value is usable.
type Config struct {
	// Workers caps concurrent page renders. Zero means 4.
	Workers int
	// GenerateRobots adds a robots.txt pointing at the sitemap.
	GenerateRobots bool
}

// Dependencies are the collaborators a builder needs.
type Dependencies struct {
	Storage interfaces.Storage
	Images  *images.Registry
	Logger  interfaces.Logger
}

// Service turns a stored site into a deployable bundle.
type Service interface {
	Build(ctx context.Context, siteID string) (*Bundle, *BuildResult, error)
}

// Diagnostic records the outcome of one page target.
type Diagnostic struct {
	Route      string
	OutputPath string
	Skipped    bool
	Message    string
	Err        error
	Duration   time.Duration
}

// BuildResult summarizes a build for callers that want to report on it
// without re-walking the bundle.
type BuildResult struct {
	// BuildID correlates log entries and diagnostics of one run.
	BuildID      uuid.UUID
	PagesBuilt   int
	PagesSkipped int
	Diagnostics  []Diagnostic
	GeneratedAt  time.Time
	Duration     time.Duration
}

type service struct {
	cfg    Config
	deps   Dependencies
	logger interfaces.Logger
	now    func() time.Time
}

func NewService(cfg Config, deps Dependencies) Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &service{cfg: cfg, deps: deps, logger: logger, now: time.Now}
}

// Build runs the full pipeline: load and synchronize the site, render
// every page concurrently, copy the editable source under _site/, pack
// theme, layout, and image assets, and finish with sitemap and feed.
// A failing page is skipped and reported; a failing homepage aborts
// the build, since a bundle without an index.html is not deployable.
func (s *service) Build(ctx context.Context, siteID string) (*Bundle, *BuildResult, error) {
	started := s.now()
	buildID := uuid.New()
	logger := logging.WithFields(s.logger, map[string]any{"build_id": buildID.String()})
	logger.Info("build started", "site", siteID)

	bc, err := s.loadContext(ctx, siteID)
	if err != nil {
		return nil, nil, err
	}
	if err := bc.session.Compile(); err != nil {
		return nil, nil, err
	}

	bundle := NewBundle()
	result := &BuildResult{BuildID: buildID, GeneratedAt: bc.generatedAt}

	targets := pageTargets(bc.manifest, bc.files)
	rendered := make([]string, len(targets))
	diags := make([]*Diagnostic, len(targets))

	// The homepage renders first on its own; everything else fans out.
	hasHomepage := false
	for i, t := range targets {
		if !t.homepage {
			continue
		}
		hasHomepage = true
		html, diag := s.renderPage(ctx, bc, t)
		if diag.Err != nil {
			return nil, nil, fmt.Errorf("builder: homepage failed: %w", diag.Err)
		}
		if diag.Skipped {
			return nil, nil, fmt.Errorf("builder: homepage unresolved: %s", diag.Message)
		}
		rendered[i], diags[i] = html, diag
	}
	if !hasHomepage {
		return nil, nil, fmt.Errorf("builder: site %s has no homepage node", siteID)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)
	var mu sync.Mutex
	for i, t := range targets {
		if t.homepage {
			continue
		}
		i, t := i, t
		group.Go(func() error {
			html, diag := s.renderPage(groupCtx, bc, t)
			mu.Lock()
			rendered[i], diags[i] = html, diag
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	for i, diag := range diags {
		if diag == nil {
			continue
		}
		result.Diagnostics = append(result.Diagnostics, *diag)
		switch {
		case diag.Err != nil:
			result.PagesSkipped++
			s.logger.Error("page render failed, skipping",
				"route", diag.Route, "error", diag.Err)
		case diag.Skipped:
			result.PagesSkipped++
			s.logger.Warn("page skipped", "route", diag.Route, "reason", diag.Message)
		default:
			result.PagesBuilt++
			bundle.PutText(targets[i].exportPath, rendered[i])
		}
	}

	if err := s.exportSource(bc, bundle); err != nil {
		return nil, nil, err
	}
	if err := s.exportAssets(ctx, bc, bundle, siteID); err != nil {
		return nil, nil, err
	}
	s.exportMetadata(bc, bundle, diags, targets)

	result.Duration = time.Since(started)
	logger.Info("build finished",
		"site", siteID,
		"pages", result.PagesBuilt,
		"skipped", result.PagesSkipped,
		"files", bundle.Len(),
		"duration", result.Duration)
	return bundle, result, nil
}

// exportMetadata writes sitemap.xml, rss.xml, and the optional
// robots.txt from the set of pages that actually rendered.
func (s *service) exportMetadata(bc *buildContext, bundle *Bundle, diags []*Diagnostic, targets []pageTarget) {
	var entries []sitemapEntry
	for i, diag := range diags {
		if diag == nil || diag.Err != nil || diag.Skipped {
			continue
		}
		entry := sitemapEntry{Location: targets[i].route}
		if file, ok := bc.files[targets[i].contentPath]; ok {
			entry.LastMod = file.Date()
		}
		entries = append(entries, entry)
	}
	bundle.PutText("sitemap.xml", buildSitemap(bc.manifest.BaseURL, entries, bc.generatedAt))

	base := baseURLWithFallback(bc.manifest.BaseURL)
	var feed []feedItem
	for _, ref := range bc.manifest.CollectionItems {
		file, ok := bc.files[ref.Path]
		if !ok || !file.Published() {
			continue
		}
		link := base + "/" + urls.ForItem(ref, false) + "/"
		feed = append(feed, feedItem{
			Title:       file.Title(),
			Summary:     file.Description(),
			Link:        link,
			GUID:        link,
			PublishedAt: file.Date(),
		})
	}
	bundle.PutText("rss.xml", buildRSSFeed(
		bc.manifest.Title, bc.manifest.Description, bc.manifest.BaseURL,
		selectFeedItems(feed), bc.generatedAt))

	if s.cfg.GenerateRobots {
		bundle.PutText("robots.txt", buildRobots(bc.manifest.BaseURL))
	}
}
