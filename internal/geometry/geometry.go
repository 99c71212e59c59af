// Package geometry implements the raster transforms of the decode pipeline:
// aspect-preserving scale-to-fit, orientation correction and overlay
// compositing.
package geometry

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// ScaleToFit scales img uniformly by min(boundW/w, boundH/h) with
// nearest-neighbour sampling. Output sides are floored and never below 1.
// A non-positive bound leaves that axis unconstrained; with both
// unconstrained, or when the size would not change, img is returned as is.
func ScaleToFit(img image.Image, boundW, boundH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || (boundW <= 0 && boundH <= 0) {
		return img
	}

	// compare boundW/w with boundH/h without floating point
	var newW, newH int
	switch {
	case boundH <= 0, boundW > 0 && boundW*h <= boundH*w:
		newW, newH = boundW, h*boundW/w
	default:
		newW, newH = w*boundH/h, boundH
	}
	newW, newH = max(newW, 1), max(newH, 1)

	if newW == w && newH == h {
		return img
	}
	return imaging.Resize(img, newW, newH, imaging.NearestNeighbor)
}

// ApplyOrientation rotates img clockwise by rotation degrees and then mirrors
// it horizontally if asked. Rotation 0 without mirroring returns img itself.
func ApplyOrientation(img image.Image, rotation int, mirrorHorizontal bool) image.Image {
	rotation = ((rotation % 360) + 360) % 360
	if rotation == 0 && !mirrorHorizontal {
		return img
	}

	out := img
	switch rotation {
	case 0:
	case 90:
		// imaging rotates counter-clockwise
		out = imaging.Rotate270(img)
	case 180:
		out = imaging.Rotate180(img)
	case 270:
		out = imaging.Rotate90(img)
	default:
		out = imaging.Rotate(img, float64(360-rotation), color.Transparent)
	}

	if mirrorHorizontal {
		out = imaging.FlipH(out)
	}
	return out
}

// Mutable returns img as a draw.Image that holds any colour drawn onto it.
// Full-colour rasters are returned as is; paletted, gray and YCbCr rasters
// would quantize an overlay, so they are copied to NRGBA.
func Mutable(img image.Image) draw.Image {
	switch d := img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64:
		return d.(draw.Image)
	}
	return imaging.Clone(img)
}

// centeredOverlayRect sizes the overlay to a fifth of the raster's longer
// side, keeping the overlay's aspect ratio, centred on the raster.
func centeredOverlayRect(dstW, dstH, ovW, ovH int) image.Rectangle {
	var w, h int
	if dstW >= dstH {
		h = dstH / 5
		w = ovW * h / ovH
	} else {
		w = dstW / 5
		h = ovH * w / ovW
	}

	x, y := dstW/2, dstH/2
	return image.Rect(x-w/2, y-h/2, x+w/2, y+h/2)
}

// OverlayCentered draws overlay in the middle of dst, in place. A nil or
// empty overlay is a no-op.
func OverlayCentered(dst draw.Image, overlay image.Image) {
	if dst == nil || overlay == nil {
		return
	}
	ob, db := overlay.Bounds(), dst.Bounds()
	if ob.Empty() || db.Empty() {
		return
	}

	rect := centeredOverlayRect(db.Dx(), db.Dy(), ob.Dx(), ob.Dy())
	if rect.Empty() {
		return
	}
	xdraw.BiLinear.Scale(dst, rect.Add(db.Min), overlay, ob, xdraw.Over, nil)
}

// OverlayTopLeftStacked scales overlay to half the height of dst and draws it
// twice, one copy under the other, anchored at the top-left corner.
func OverlayTopLeftStacked(dst draw.Image, overlay image.Image) {
	if dst == nil || overlay == nil {
		return
	}
	ob, db := overlay.Bounds(), dst.Bounds()
	if ob.Empty() || db.Empty() {
		return
	}

	scale := float64(db.Dy()) / float64(ob.Dy())
	w := int(math.Round(scale*float64(ob.Dx()))) / 2
	h := int(math.Round(scale*float64(ob.Dy()))) / 2
	if w == 0 || h == 0 {
		return
	}

	scaled := ScaleToFit(overlay, w, h)
	sb := scaled.Bounds()
	for _, rect := range []image.Rectangle{image.Rect(0, 0, w, h), image.Rect(0, h, w, h*2)} {
		xdraw.NearestNeighbor.Scale(dst, rect.Add(db.Min), scaled, sb, xdraw.Over, nil)
	}
}
