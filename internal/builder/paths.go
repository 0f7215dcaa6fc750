package builder

import "strings"

// relativeRoot computes the "../" prefix that reaches the bundle root
// from an output path, so asset references stay portable wherever the
// bundle is hosted.
func relativeRoot(outputPath string) string {
	cleaned := strings.Trim(outputPath, "/")
	if cleaned == "" {
		return ""
	}
	depth := strings.Count(cleaned, "/")
	return strings.Repeat("../", depth)
}
