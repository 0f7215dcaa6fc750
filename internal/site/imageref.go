package site

// ImageRefFromValue decodes a frontmatter value into an image ref.
// Returns nil unless the value is a map carrying at least a src key.
func ImageRefFromValue(value any) *ImageRef {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	ref := &ImageRef{}
	if v, ok := raw["serviceId"].(string); ok {
		ref.ServiceID = v
	}
	if v, ok := raw["src"].(string); ok {
		ref.Src = v
	}
	if v, ok := raw["alt"].(string); ok {
		ref.Alt = v
	}
	ref.Width = intValue(raw["width"])
	ref.Height = intValue(raw["height"])
	if ref.Src == "" {
		return nil
	}
	return ref
}

// CollectImageRefs returns every image ref found in a frontmatter map.
func CollectImageRefs(fm map[string]any) []ImageRef {
	var refs []ImageRef
	for _, value := range fm {
		if ref := ImageRefFromValue(value); ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs
}

func intValue(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
