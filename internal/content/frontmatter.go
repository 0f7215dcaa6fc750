package content

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Parse extracts the frontmatter block and body from a raw content
// document and derives the slug from the storage path.
func Parse(path string, source []byte) (*File, error) {
	var meta map[string]any

	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", path, err)
	}
	if meta == nil {
		meta = map[string]any{}
	}

	return &File{
		Slug:        SlugFromPath(path),
		Path:        path,
		Frontmatter: meta,
		Content:     strings.TrimSpace(string(body)),
	}, nil
}

// Serialize renders the file back into its delimited frontmatter +
// body form. Nil frontmatter values are dropped so the output
// round-trips cleanly; keys are emitted in sorted order for stable
// diffs.
func Serialize(fm map[string]any, body string) ([]byte, error) {
	cleaned := make(map[string]any, len(fm))
	for key, value := range fm {
		if value == nil {
			continue
		}
		cleaned[key] = value
	}

	keys := make([]string, 0, len(cleaned))
	for key := range cleaned {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var node yaml.Node
	node.Kind = yaml.MappingNode
	for _, key := range keys {
		var keyNode, valueNode yaml.Node
		keyNode.SetString(key)
		if err := valueNode.Encode(cleaned[key]); err != nil {
			return nil, fmt.Errorf("content: serialize frontmatter key %q: %w", key, err)
		}
		node.Content = append(node.Content, &keyNode, &valueNode)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	if len(node.Content) > 0 {
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(&node); err != nil {
			return nil, fmt.Errorf("content: serialize frontmatter: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("content: serialize frontmatter: %w", err)
		}
	}
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Serialize renders the file in its portable on-disk form.
func (f *File) Serialize() ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("content: file required")
	}
	return Serialize(f.Frontmatter, f.Content)
}

// ParseAll parses a set of raw content records keyed by path. Files
// that fail to parse are skipped and reported in the returned map of
// per-path errors; a single malformed file never aborts the batch.
func ParseAll(sources map[string][]byte) (map[string]*File, map[string]error) {
	files := make(map[string]*File, len(sources))
	failures := map[string]error{}
	for path, source := range sources {
		file, err := Parse(path, source)
		if err != nil {
			failures[path] = err
			continue
		}
		files[path] = file
	}
	return files, failures
}
