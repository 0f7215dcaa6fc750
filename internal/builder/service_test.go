package builder

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sparkpress/sparkpress/internal/images"
	"github.com/sparkpress/sparkpress/internal/site"
	"github.com/sparkpress/sparkpress/internal/storage"
)

const testSiteID = "site-1"

func newTestService(store *storage.Memory) Service {
	registry := images.NewRegistry()
	registry.Register(images.ServiceLocal,
		images.NewLocalService(store, images.LocalConfig{}, nil))
	return NewService(Config{}, Dependencies{
		Storage: store,
		Images:  registry,
	})
}

func seedMinimalSite(t *testing.T) *storage.Memory {
	t.Helper()
	store := storage.NewMemory()
	manifest := `{
  "siteId": "site-1",
  "title": "Minimal",
  "baseUrl": "https://example.com",
  "theme": {"name": "default"},
  "structure": [
    {"title": "Home", "path": "content/index.md", "slug": "index"}
  ]
}`
	if err := store.PutManifest(context.Background(), testSiteID, []byte(manifest)); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}
	store.PutContentFile(testSiteID, "content/index.md",
		[]byte("---\ntitle: Welcome\n---\n\n# Hello\n\nMinimal site body.\n"))
	return store
}

func TestBuildMinimalSiteBundleContents(t *testing.T) {
	store := seedMinimalSite(t)
	svc := newTestService(store)

	bundle, result, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := []string{
		"index.html",
		"_site/manifest.json",
		"_site/content/index.md",
		"sitemap.xml",
		"rss.xml",
	}
	if bundle.Len() != len(want) {
		t.Fatalf("bundle has %d files %v, want exactly %v", bundle.Len(), bundle.Paths(), want)
	}
	for _, path := range want {
		if !bundle.Has(path) {
			t.Fatalf("bundle missing %s, has %v", path, bundle.Paths())
		}
	}
	if result.PagesBuilt != 1 || result.PagesSkipped != 0 {
		t.Fatalf("result = %+v", result)
	}

	html, _ := bundle.Text("index.html")
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Welcome") {
		t.Fatalf("homepage html:\n%s", html)
	}
}

func TestBuildRoundTripsManifestAndContent(t *testing.T) {
	store := seedMinimalSite(t)
	svc := newTestService(store)

	bundle, _, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	manifestJSON, _ := bundle.Get("_site/manifest.json")
	m, err := site.ParseManifest(manifestJSON)
	if err != nil {
		t.Fatalf("bundle manifest does not parse: %v", err)
	}
	if m.SiteID != testSiteID {
		t.Fatalf("manifest = %+v", m)
	}

	md, _ := bundle.Text("_site/content/index.md")
	if !strings.HasPrefix(md, "---\n") || !strings.Contains(md, "title: Welcome") {
		t.Fatalf("content not re-serialized with frontmatter:\n%s", md)
	}
}

func TestBuildSitemapAndFeed(t *testing.T) {
	store := seedMinimalSite(t)
	svc := newTestService(store)

	bundle, _, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	sitemap, _ := bundle.Text("sitemap.xml")
	if !strings.Contains(sitemap, "<loc>https://example.com/</loc>") {
		t.Fatalf("sitemap:\n%s", sitemap)
	}

	rss, _ := bundle.Text("rss.xml")
	if !strings.Contains(rss, "<title>Minimal</title>") {
		t.Fatalf("rss:\n%s", rss)
	}
	if strings.Contains(rss, "<item>") {
		t.Fatalf("feed should have no items for a site without collections:\n%s", rss)
	}
}

func TestBuildFailsWithoutHomepageContent(t *testing.T) {
	store := seedMinimalSite(t)
	// Replace the structure with a path that has no content file.
	manifest := `{
  "siteId": "site-1",
  "title": "Broken",
  "theme": {"name": "default"},
  "structure": [
    {"title": "Home", "path": "content/missing.md", "slug": "index"}
  ]
}`
	if err := store.PutManifest(context.Background(), testSiteID, []byte(manifest)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := newTestService(store)
	if _, _, err := svc.Build(context.Background(), testSiteID); err == nil {
		t.Fatal("a build without a homepage must fail")
	}
}

func seedCollectionSite(t *testing.T, itemCount int) *storage.Memory {
	t.Helper()
	store := storage.NewMemory()
	ctx := context.Background()

	items := ""
	for i := 1; i <= itemCount; i++ {
		if items != "" {
			items += ",\n    "
		}
		items += fmt.Sprintf(
			`{"collectionId": "blog", "slug": "post-%d", "path": "content/blog/post-%d.md", "title": "Post %d"}`,
			i, i, i)
		store.PutContentFile(testSiteID, fmt.Sprintf("content/blog/post-%d.md", i),
			[]byte(fmt.Sprintf("---\ntitle: Post %d\ndate: 2024-01-%02d\n---\n\nBody %d.\n", i, i, i)))
	}

	manifest := fmt.Sprintf(`{
  "siteId": "site-1",
  "title": "Blog Site",
  "description": "A site with a blog",
  "baseUrl": "https://blog.example.com",
  "theme": {"name": "default"},
  "structure": [
    {"title": "Home", "path": "content/index.md", "slug": "index"},
    {"title": "Blog", "path": "content/blog.md", "slug": "blog", "navOrder": 1}
  ],
  "collections": [
    {"id": "blog", "name": "Blog", "contentPath": "content/blog"}
  ],
  "collectionItems": [
    %s
  ]
}`, items)
	if err := store.PutManifest(ctx, testSiteID, []byte(manifest)); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	store.PutContentFile(testSiteID, "content/index.md",
		[]byte("---\ntitle: Home\n---\n\nWelcome.\n"))
	store.PutContentFile(testSiteID, "content/blog.md",
		[]byte("---\ntitle: Blog\nlayoutConfig:\n  collectionId: blog\n  itemsPerPage: 2\n---\n\nAll posts.\n"))
	return store
}

func TestBuildCollectionPagesAndPagination(t *testing.T) {
	store := seedCollectionSite(t, 3)
	svc := newTestService(store)

	bundle, result, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// 3 items at 2 per page: listing page plus page/2.
	for _, path := range []string{
		"index.html",
		"blog/index.html",
		"blog/page/2/index.html",
		"blog/post-1/index.html",
		"blog/post-2/index.html",
		"blog/post-3/index.html",
	} {
		if !bundle.Has(path) {
			t.Fatalf("bundle missing %s, has %v", path, bundle.Paths())
		}
	}
	if result.PagesBuilt != 6 {
		t.Fatalf("pages built = %d, want 6", result.PagesBuilt)
	}

	// Published items land in the portable source copy too.
	if !bundle.Has("_site/content/blog/post-1.md") {
		t.Fatalf("bundle missing source item, has %v", bundle.Paths())
	}
}

func TestBuildFeedItemsNewestFirst(t *testing.T) {
	store := seedCollectionSite(t, 3)
	svc := newTestService(store)

	bundle, _, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rss, _ := bundle.Text("rss.xml")
	if !strings.Contains(rss, "<item>") {
		t.Fatalf("feed has no items:\n%s", rss)
	}
	third := strings.Index(rss, "Post 3")
	first := strings.Index(rss, "Post 1")
	if third < 0 || first < 0 || third > first {
		t.Fatalf("items not newest-first:\n%s", rss)
	}
	if !strings.Contains(rss, "https://blog.example.com/blog/post-2/") {
		t.Fatalf("item links missing:\n%s", rss)
	}
}

func TestBuildSkipsDrafts(t *testing.T) {
	store := seedCollectionSite(t, 2)
	store.PutContentFile(testSiteID, "content/blog/post-2.md",
		[]byte("---\ntitle: Post 2\ndate: 2024-01-02\npublished: false\n---\n\nDraft.\n"))
	svc := newTestService(store)

	bundle, result, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if bundle.Has("blog/post-2/index.html") {
		t.Fatal("draft page was rendered")
	}
	if bundle.Has("_site/content/blog/post-2.md") {
		t.Fatal("draft landed in the portable source copy")
	}
	if result.PagesSkipped == 0 {
		t.Fatalf("result = %+v, want the draft reported as skipped", result)
	}
	rss, _ := bundle.Text("rss.xml")
	if strings.Contains(rss, "Post 2") {
		t.Fatalf("draft leaked into the feed:\n%s", rss)
	}
}

func TestBuildUsesThemeShellAndLayouts(t *testing.T) {
	store := seedMinimalSite(t)
	ctx := context.Background()

	store.PutContentFile(testSiteID, "content/index.md",
		[]byte("---\ntitle: Welcome\nlayout: page\n---\n\nBody.\n"))
	store.PutLayoutFile(testSiteID, "page/layout.json",
		[]byte(`{"id": "page", "name": "Page", "layoutType": "single"}`))
	store.PutLayoutFile(testSiteID, "page/index.html",
		[]byte(`<article>{{ .Page.ContentHTML }}</article>`))
	store.PutThemeFile(testSiteID, "default/theme.json",
		[]byte(`{"name": "default", "defaultConfig": {"accentColor": "#123456"}}`))
	store.PutThemeFile(testSiteID, "default/index.html",
		[]byte(`<html><head><style>{{ .Site.StyleOverrides }}</style></head><body>{{ partial "default" "header" . }}{{ .Content }}</body></html>`))
	store.PutThemeFile(testSiteID, "default/partials/header.html",
		[]byte(`<header>{{ .Site.SiteTitle }}</header>`))

	svc := newTestService(store)
	bundle, _, err := svc.Build(ctx, testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	html, _ := bundle.Text("index.html")
	if !strings.Contains(html, "<article>") {
		t.Fatalf("layout not applied:\n%s", html)
	}
	if !strings.Contains(html, "<header>Minimal</header>") {
		t.Fatalf("theme partial not rendered:\n%s", html)
	}
	if !strings.Contains(html, "--accent-color: #123456") {
		t.Fatalf("theme config overrides missing:\n%s", html)
	}

	// Theme and layout packs travel with the bundle.
	if !bundle.Has("themes/default/theme.json") || !bundle.Has("layouts/page/index.html") {
		t.Fatalf("packs missing from bundle: %v", bundle.Paths())
	}
}

func TestBuildDeclaredButMissingLayoutFailsPage(t *testing.T) {
	store := seedCollectionSite(t, 1)
	store.PutContentFile(testSiteID, "content/blog/post-1.md",
		[]byte("---\ntitle: Post 1\nlayout: fancy\n---\n\nBody.\n"))

	svc := newTestService(store)
	bundle, result, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bundle.Has("blog/post-1/index.html") {
		t.Fatal("page with unresolvable layout was rendered")
	}

	var found bool
	for _, diag := range result.Diagnostics {
		if diag.Err != nil && strings.Contains(diag.Err.Error(), "fancy") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing layout not diagnosed: %+v", result.Diagnostics)
	}
}

func TestBuildRobotsOptIn(t *testing.T) {
	store := seedMinimalSite(t)
	registry := images.NewRegistry()
	registry.Register(images.ServiceLocal,
		images.NewLocalService(store, images.LocalConfig{}, nil))
	svc := NewService(Config{GenerateRobots: true}, Dependencies{
		Storage: store,
		Images:  registry,
	})

	bundle, _, err := svc.Build(context.Background(), testSiteID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	robots, ok := bundle.Text("robots.txt")
	if !ok {
		t.Fatalf("robots.txt missing: %v", bundle.Paths())
	}
	if !strings.Contains(robots, "Sitemap: https://example.com/sitemap.xml") {
		t.Fatalf("robots:\n%s", robots)
	}
}

func TestRelativeRoot(t *testing.T) {
	cases := map[string]string{
		"index.html":                  "",
		"about/index.html":            "../",
		"blog/page/2/index.html":      "../../../",
		"blog/post-1/index.html":      "../../",
		"assets/images/deep/x/y.html": "../../../",
	}
	for path, want := range cases {
		if got := relativeRoot(path); got != want {
			t.Fatalf("relativeRoot(%q) = %q, want %q", path, got, want)
		}
	}
}
