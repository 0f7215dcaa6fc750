package builder

import "sort"

// Bundle is the build output: a map from relative output path to file
// content. It is the single artifact a build produces and must be
// treated as immutable once returned; the builder never touches a
// bundle after handing it to the caller.
type Bundle struct {
	entries map[string][]byte
}

// NewBundle creates an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{entries: map[string][]byte{}}
}

// PutText stores a text file at the given relative path.
func (b *Bundle) PutText(path, content string) {
	b.entries[path] = []byte(content)
}

// PutBinary stores binary data at the given relative path.
func (b *Bundle) PutBinary(path string, data []byte) {
	b.entries[path] = data
}

// Get returns the content stored at path.
func (b *Bundle) Get(path string) ([]byte, bool) {
	data, ok := b.entries[path]
	return data, ok
}

// Text returns the content at path as a string.
func (b *Bundle) Text(path string) (string, bool) {
	data, ok := b.entries[path]
	return string(data), ok
}

// Has reports whether the bundle contains a file at path.
func (b *Bundle) Has(path string) bool {
	_, ok := b.entries[path]
	return ok
}

// Len returns the number of files in the bundle.
func (b *Bundle) Len() int {
	return len(b.entries)
}

// Paths returns every output path in sorted order.
func (b *Bundle) Paths() []string {
	paths := make([]string, 0, len(b.entries))
	for path := range b.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Walk visits every entry in path order.
func (b *Bundle) Walk(visit func(path string, data []byte) error) error {
	for _, path := range b.Paths() {
		if err := visit(path, b.entries[path]); err != nil {
			return err
		}
	}
	return nil
}
