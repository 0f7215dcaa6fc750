package images

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	// Decode-only support for webp sources.
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// transform decodes a source image, applies the requested resize/crop,
// and re-encodes it. Requested dimensions are capped at the source's
// actual dimensions so derivatives never upscale.
func transform(source []byte, opts TransformOptions) ([]byte, error) {
	opts = opts.normalized()

	src, format, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("images: decode source: %w", err)
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	targetW, targetH := capDimensions(opts.Width, opts.Height, srcW, srcH)
	if targetW == srcW && targetH == srcH {
		return encode(src, outputFormat(format, opts.Format))
	}

	var out image.Image
	switch opts.Crop {
	case CropScale:
		out = scaleTo(src, targetW, targetH)
	case CropFill:
		out = fillTo(src, targetW, targetH, opts.Gravity)
	default: // fit
		fitW, fitH := fitWithin(srcW, srcH, targetW, targetH)
		out = scaleTo(src, fitW, fitH)
	}

	return encode(out, outputFormat(format, opts.Format))
}

// probeDimensions returns the natural dimensions of an encoded image,
// zeroes when the header cannot be decoded.
func probeDimensions(source []byte) (int, int) {
	config, _, err := image.DecodeConfig(bytes.NewReader(source))
	if err != nil {
		return 0, 0
	}
	return config.Width, config.Height
}

// capDimensions resolves missing target dimensions from the source
// aspect ratio and clamps both against the source size.
func capDimensions(w, h, srcW, srcH int) (int, int) {
	if w <= 0 && h <= 0 {
		return srcW, srcH
	}
	if w <= 0 {
		w = srcW * h / srcH
	}
	if h <= 0 {
		h = srcH * w / srcW
	}
	if w > srcW {
		w = srcW
	}
	if h > srcH {
		h = srcH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func fitWithin(srcW, srcH, maxW, maxH int) (int, int) {
	scaleW := float64(maxW) / float64(srcW)
	scaleH := float64(maxH) / float64(srcH)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	w := int(float64(srcW)*scale + 0.5)
	h := int(float64(srcH)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func scaleTo(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// fillTo scales the source to cover the target box, then crops the
// overflow according to gravity.
func fillTo(src image.Image, w, h int, gravity string) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	scaleW := float64(w) / float64(srcW)
	scaleH := float64(h) / float64(srcH)
	scale := scaleW
	if scaleH > scale {
		scale = scaleH
	}

	coverW := int(float64(srcW)*scale + 0.5)
	coverH := int(float64(srcH)*scale + 0.5)
	scaled := scaleTo(src, coverW, coverH)

	offsetX := (coverW - w) / 2
	offsetY := (coverH - h) / 2
	switch gravity {
	case GravityNorth:
		offsetY = 0
	case GravitySouth:
		offsetY = coverH - h
	case GravityWest:
		offsetX = 0
	case GravityEast:
		offsetX = coverW - w
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), scaled, image.Pt(offsetX, offsetY), draw.Src)
	return dst
}

// outputFormat picks the derivative encoding. Formats without an
// encoder (webp) fall back to png.
func outputFormat(sourceFormat, requested string) string {
	format := requested
	if format == "" {
		format = sourceFormat
	}
	switch format {
	case "jpeg", "jpg":
		return "jpeg"
	case "gif":
		return "gif"
	default:
		return "png"
	}
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("images: encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// formatExtension maps a derivative format to its file extension.
func formatExtension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "gif":
		return ".gif"
	default:
		return ".png"
	}
}
