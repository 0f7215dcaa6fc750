package content

import (
	"strings"
	"testing"
	"time"
)

func TestParseSplitsFrontmatterAndBody(t *testing.T) {
	raw := []byte("---\ntitle: Hello\npublished: true\n---\n\n# Heading\n\nBody text.\n")

	file, err := Parse("content/hello.md", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if file.Frontmatter["title"] != "Hello" {
		t.Fatalf("title = %v, want Hello", file.Frontmatter["title"])
	}
	if published, ok := file.Frontmatter["published"].(bool); !ok || !published {
		t.Fatalf("published = %v, want true", file.Frontmatter["published"])
	}
	if !strings.HasPrefix(file.Content, "# Heading") {
		t.Fatalf("body = %q, want to start with heading", file.Content)
	}
	if file.Slug != "hello" {
		t.Fatalf("slug = %q, want hello", file.Slug)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	file, err := Parse("content/plain.md", []byte("Just a body.\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(file.Frontmatter) != 0 {
		t.Fatalf("frontmatter = %v, want empty", file.Frontmatter)
	}
	if file.Content != "Just a body." {
		t.Fatalf("body = %q", file.Content)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	fm := map[string]any{
		"title":     "Round Trip",
		"layout":    "page",
		"published": true,
		"obsolete":  nil,
	}
	body := "Some **markdown** body."

	raw, err := Serialize(fm, body)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	file, err := Parse("content/round-trip.md", raw)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if file.Frontmatter["title"] != "Round Trip" || file.Frontmatter["layout"] != "page" {
		t.Fatalf("reparsed frontmatter = %v", file.Frontmatter)
	}
	if _, ok := file.Frontmatter["obsolete"]; ok {
		t.Fatal("nil-valued key survived serialization")
	}
	if file.Content != body {
		t.Fatalf("body = %q, want %q", file.Content, body)
	}
}

func TestSerializeSortsKeys(t *testing.T) {
	raw, err := Serialize(map[string]any{"zeta": 1, "alpha": 2, "mid": 3}, "b")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	text := string(raw)
	if strings.Index(text, "alpha") > strings.Index(text, "mid") ||
		strings.Index(text, "mid") > strings.Index(text, "zeta") {
		t.Fatalf("keys not sorted:\n%s", text)
	}
}

func TestParseAllReportsFailuresWithoutAborting(t *testing.T) {
	files, failures := ParseAll(map[string][]byte{
		"content/good.md": []byte("---\ntitle: Good\n---\nbody"),
		"content/bad.md":  []byte("---\ntitle: [unclosed\n---\nbody"),
	})

	if _, ok := files["content/good.md"]; !ok {
		t.Fatal("good file missing from results")
	}
	if _, ok := failures["content/bad.md"]; !ok {
		t.Fatalf("bad file not reported, failures = %v", failures)
	}
	if _, ok := files["content/bad.md"]; ok {
		t.Fatal("bad file should not appear in results")
	}
}

func TestFilePublishedDefaultsTrue(t *testing.T) {
	file := &File{Frontmatter: map[string]any{"title": "x"}}
	if !file.Published() {
		t.Fatal("file without published flag should count as published")
	}

	draft := &File{Frontmatter: map[string]any{"published": false}}
	if draft.Published() {
		t.Fatal("published: false should mark a draft")
	}
}

func TestFileDateForms(t *testing.T) {
	file := &File{Frontmatter: map[string]any{"date": "2024-03-01"}}
	if got := file.Date(); got.Year() != 2024 || got.Month() != 3 {
		t.Fatalf("plain date = %v", got)
	}

	file = &File{Frontmatter: map[string]any{"date": "2024-03-01T10:30:00Z"}}
	if got := file.Date(); got.Hour() != 10 {
		t.Fatalf("rfc date = %v", got)
	}

	file = &File{Frontmatter: map[string]any{"date": "yesterday"}}
	if got := file.Date(); !got.IsZero() {
		t.Fatalf("unparseable date = %v, want zero", got)
	}

	now := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	file = &File{Frontmatter: map[string]any{"date": now}}
	if got := file.Date(); !got.Equal(now) {
		t.Fatalf("time.Time date = %v, want %v", got, now)
	}
}

func TestFileCollectionConfig(t *testing.T) {
	file := &File{Frontmatter: map[string]any{
		"layoutConfig": map[string]any{
			"collectionId": "blog",
			"itemsPerPage": float64(5),
		},
	}}

	if !file.IsCollectionListing() {
		t.Fatal("expected collection listing")
	}
	if got := file.CollectionID(); got != "blog" {
		t.Fatalf("collection id = %q", got)
	}
	if got := file.ItemsPerPage(); got != 5 {
		t.Fatalf("items per page = %d, want 5", got)
	}
}

func TestSlugFromPath(t *testing.T) {
	cases := map[string]string{
		"content/blog/My First Post.md": "my-first-post",
		"content/about.md":              "about",
	}
	for input, want := range cases {
		if got := SlugFromPath(input); got != want {
			t.Fatalf("SlugFromPath(%q) = %q, want %q", input, got, want)
		}
	}
}
