package images

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// derivativeKey is the deterministic identity of a cached derivative.
// The same (source, width, height, crop, gravity, format) always
// yields the same key, which doubles as the storage key inside a
// site's derivative cache.
type derivativeKey struct {
	Source  string
	Width   int
	Height  int
	Crop    string
	Gravity string
	Format  string
}

func newDerivativeKey(source string, opts TransformOptions) derivativeKey {
	opts = opts.normalized()
	return derivativeKey{
		Source:  source,
		Width:   opts.Width,
		Height:  opts.Height,
		Crop:    opts.Crop,
		Gravity: opts.Gravity,
		Format:  opts.Format,
	}
}

// Options reconstructs the transform the key encodes.
func (k derivativeKey) Options() TransformOptions {
	return TransformOptions{
		Width:   k.Width,
		Height:  k.Height,
		Crop:    k.Crop,
		Gravity: k.Gravity,
		Format:  k.Format,
	}
}

// String renders the composite cache key.
func (k derivativeKey) String() string {
	return strings.Join([]string{
		k.Source,
		"w" + strconv.Itoa(k.Width),
		"h" + strconv.Itoa(k.Height),
		k.Crop,
		k.Gravity,
		k.Format,
	}, "|")
}

// FileName is the derivative's portable file name inside the exported
// asset tree.
func (k derivativeKey) FileName() string {
	base := strings.TrimSuffix(path.Base(k.Source), path.Ext(k.Source))
	ext := k.extension()
	return fmt.Sprintf("%s_w%d_h%d_%s%s", base, k.Width, k.Height, k.Crop, ext)
}

func (k derivativeKey) extension() string {
	if k.Format != "" {
		return formatExtension(outputFormat("", k.Format))
	}
	ext := strings.ToLower(path.Ext(k.Source))
	switch ext {
	case ".jpg", ".jpeg":
		return ".jpg"
	case ".gif":
		return ".gif"
	default:
		return ".png"
	}
}

func parseDerivativeKey(value string) (derivativeKey, bool) {
	parts := strings.Split(value, "|")
	if len(parts) != 6 {
		return derivativeKey{}, false
	}
	width, errW := strconv.Atoi(strings.TrimPrefix(parts[1], "w"))
	height, errH := strconv.Atoi(strings.TrimPrefix(parts[2], "h"))
	if errW != nil || errH != nil {
		return derivativeKey{}, false
	}
	return derivativeKey{
		Source:  parts[0],
		Width:   width,
		Height:  height,
		Crop:    parts[3],
		Gravity: parts[4],
		Format:  parts[5],
	}, true
}
