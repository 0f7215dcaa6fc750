package images

// Crop modes supported by transforms.
const (
	CropFill  = "fill"
	CropFit   = "fit"
	CropScale = "scale"
)

// Gravity values steering fill crops.
const (
	GravityCenter = "center"
	GravityNorth  = "north"
	GravitySouth  = "south"
	GravityEast   = "east"
	GravityWest   = "west"
)

// TransformOptions describe a derivative: target dimensions, crop
// mode, crop gravity, and an optional output format override.
type TransformOptions struct {
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Crop    string `json:"crop,omitempty"`
	Gravity string `json:"gravity,omitempty"`
	Format  string `json:"format,omitempty"`
}

// IsZero reports whether the options request no transformation.
func (t TransformOptions) IsZero() bool {
	return t.Width == 0 && t.Height == 0 && t.Crop == "" && t.Format == ""
}

func (t TransformOptions) normalized() TransformOptions {
	if t.Crop == "" {
		t.Crop = CropFit
	}
	if t.Gravity == "" {
		t.Gravity = GravityCenter
	}
	return t
}

// ExportableAsset is one file of a site's image asset set: either a
// referenced source image or a cached derivative.
type ExportableAsset struct {
	Path string
	Data []byte
}
