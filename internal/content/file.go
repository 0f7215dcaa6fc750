package content

import (
	"strings"
	"time"
)

// File is a parsed unit of content: YAML frontmatter plus a markdown
// body. Files are exclusively identified by Path; Slug is always
// derivable from it.
type File struct {
	Slug        string
	Path        string
	Frontmatter map[string]any
	Content     string
}

// Title returns the frontmatter title, empty when absent.
func (f *File) Title() string {
	return f.stringField("title")
}

// Layout returns the declared layout identifier.
func (f *File) Layout() string {
	return f.stringField("layout")
}

// Description returns the frontmatter description, empty when absent.
func (f *File) Description() string {
	return f.stringField("description")
}

// Published reports whether the file should be part of an export.
// A file without an explicit published flag counts as published.
func (f *File) Published() bool {
	if f == nil || f.Frontmatter == nil {
		return false
	}
	value, ok := f.Frontmatter["published"]
	if !ok {
		return true
	}
	published, ok := value.(bool)
	if !ok {
		return true
	}
	return published
}

// Date parses the frontmatter date. Accepts time.Time values and the
// common YYYY-MM-DD / RFC 3339 string forms; zero when absent or
// unparseable.
func (f *File) Date() time.Time {
	if f == nil || f.Frontmatter == nil {
		return time.Time{}
	}
	switch value := f.Frontmatter["date"].(type) {
	case time.Time:
		return value
	case string:
		trimmed := strings.TrimSpace(value)
		if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// CollectionID extracts layoutConfig.collectionId when the file is a
// collection listing page.
func (f *File) CollectionID() string {
	if f == nil || f.Frontmatter == nil {
		return ""
	}
	config, ok := f.Frontmatter["layoutConfig"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := config["collectionId"].(string)
	return id
}

// ItemsPerPage returns layoutConfig.itemsPerPage for listing pages.
// Zero means the caller's default applies.
func (f *File) ItemsPerPage() int {
	if f == nil || f.Frontmatter == nil {
		return 0
	}
	config, ok := f.Frontmatter["layoutConfig"].(map[string]any)
	if !ok {
		return 0
	}
	switch value := config["itemsPerPage"].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return 0
}

// IsCollectionListing reports whether the page lists a collection.
func (f *File) IsCollectionListing() bool {
	return f.CollectionID() != ""
}

func (f *File) stringField(key string) string {
	if f == nil || f.Frontmatter == nil {
		return ""
	}
	value, _ := f.Frontmatter[key].(string)
	return value
}
