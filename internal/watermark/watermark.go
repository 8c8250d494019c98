// Package watermark composites the dealer logo onto product photos before
// publication. Watermarking is best-effort end to end: a photo without a
// watermark is acceptable, a missing photo is not, so every failure path
// returns the original bytes.
package watermark

import (
	"bytes"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/vizzaro-home/wallsync/internal/config"
)

type Processor struct {
	logo     image.Image
	position string
	opacity  float64
	scale    float64
	margin   int
}

// New loads the logo asset. If the logo is missing or unreadable the
// processor degrades to a pass-through with a warning.
func New(cfg config.Watermark) *Processor {
	p := &Processor{
		position: cfg.Position,
		opacity:  cfg.Opacity,
		scale:    cfg.Scale,
		margin:   cfg.Margin,
	}
	if !cfg.Enabled {
		return p
	}

	logo, err := imaging.Open(cfg.LogoPath)
	if err != nil {
		slog.Warn("Could not load watermark logo, images will be published unmarked", "path", cfg.LogoPath, "err", err)
		return p
	}
	p.logo = logo
	return p
}

// Disabled returns a pass-through processor.
func Disabled() *Processor {
	return &Processor{}
}

// Apply overlays the logo, sized proportionally to the source width, and
// re-encodes as JPEG. On any failure the source bytes come back unmodified.
func (p *Processor) Apply(src []byte) []byte {
	if p.logo == nil {
		return src
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		slog.Warn("Watermark skipped, source image undecodable", "err", err)
		return src
	}

	bounds := img.Bounds()
	logoWidth := int(float64(bounds.Dx()) * p.scale)
	if logoWidth < 1 {
		return src
	}
	logo := imaging.Resize(p.logo, logoWidth, 0, imaging.Lanczos)

	out := imaging.Overlay(img, logo, p.anchor(bounds, logo.Bounds()), p.opacity)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		slog.Warn("Watermark skipped, re-encode failed", "err", err)
		return src
	}
	return buf.Bytes()
}

func (p *Processor) anchor(src, logo image.Rectangle) image.Point {
	w, h := src.Dx(), src.Dy()
	lw, lh := logo.Dx(), logo.Dy()

	switch p.position {
	case "top-left":
		return image.Pt(p.margin, p.margin)
	case "top-right":
		return image.Pt(w-lw-p.margin, p.margin)
	case "bottom-left":
		return image.Pt(p.margin, h-lh-p.margin)
	case "bottom-right":
		return image.Pt(w-lw-p.margin, h-lh-p.margin)
	default: // center
		return image.Pt((w-lw)/2, (h-lh)/2)
	}
}
