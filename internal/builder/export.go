package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/sparkpress/sparkpress/internal/content"
	"github.com/sparkpress/sparkpress/internal/site"
)

// exportSource copies the editable site under _site/ so the bundle can
// be re-imported: the synchronized manifest, every published markdown
// file re-serialized from its parsed form, and data records verbatim.
func (s *service) exportSource(bc *buildContext, bundle *Bundle) error {
	manifestJSON, err := bc.manifest.Marshal()
	if err != nil {
		return err
	}
	bundle.PutBinary("_site/manifest.json", manifestJSON)

	paths := make([]string, 0, len(bc.files))
	for path := range bc.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		file := bc.files[path]
		if !file.Published() {
			continue
		}
		raw, err := content.Serialize(file.Frontmatter, file.Content)
		if err != nil {
			return fmt.Errorf("builder: serialize %s: %w", path, err)
		}
		bundle.PutBinary("_site/"+path, raw)
	}

	for path, data := range bc.dataFiles {
		bundle.PutBinary("_site/"+path, data)
	}
	return nil
}

// exportAssets packs the theme and layout packs under themes/ and
// layouts/, then asks each image backend for the originals and
// derivatives every referenced image needs.
func (s *service) exportAssets(ctx context.Context, bc *buildContext, bundle *Bundle, siteID string) error {
	for path, data := range bc.themeFiles {
		bundle.PutBinary("themes/"+path, data)
	}
	for path, data := range bc.layoutFiles {
		bundle.PutBinary("layouts/"+path, data)
	}

	refs := collectSiteImageRefs(bc)
	if len(refs) == 0 {
		return nil
	}

	byService := map[string][]site.ImageRef{}
	for _, ref := range refs {
		byService[ref.ServiceID] = append(byService[ref.ServiceID], ref)
	}
	for serviceID, group := range byService {
		var lookup *site.ImageRef
		if len(group) > 0 {
			lookup = &group[0]
		}
		svc, err := s.deps.Images.For(lookup)
		if err != nil {
			s.logger.Warn("image refs name unknown backend, skipping",
				"service", serviceID, "refs", len(group))
			continue
		}
		assets, err := svc.GetExportableAssets(ctx, siteID, group)
		if err != nil {
			return fmt.Errorf("builder: export image assets: %w", err)
		}
		for _, asset := range assets {
			bundle.PutBinary(asset.Path, asset.Data)
		}
	}
	return nil
}

// collectSiteImageRefs gathers every image reference the site makes:
// site-level logo and favicon plus anything in page frontmatter.
func collectSiteImageRefs(bc *buildContext) []site.ImageRef {
	seen := map[string]struct{}{}
	var refs []site.ImageRef
	add := func(ref *site.ImageRef) {
		if ref == nil || ref.Src == "" {
			return
		}
		if _, ok := seen[ref.Src]; ok {
			return
		}
		seen[ref.Src] = struct{}{}
		refs = append(refs, *ref)
	}

	add(bc.manifest.Logo)
	add(bc.manifest.Favicon)
	for _, file := range bc.files {
		for _, ref := range site.CollectImageRefs(file.Frontmatter) {
			ref := ref
			add(&ref)
		}
	}
	return refs
}
