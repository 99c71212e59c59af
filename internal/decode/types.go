package decode

import "image"

// TargetSize is the caller's requested size in pixels. The zero value means
// "no constraint".
type TargetSize struct {
	Width  int
	Height int
}

// IsZero reports whether the size imposes no constraint.
func (t TargetSize) IsZero() bool {
	return t.Width <= 0 && t.Height <= 0
}

// Swapped returns the size with its axes exchanged, used when the stored
// image is rotated by 90 or 270 degrees.
func (t TargetSize) Swapped() TargetSize {
	return TargetSize{Width: t.Height, Height: t.Width}
}

// Orientation describes how a stored raster must be turned to appear upright.
// Rotation is clockwise degrees in [0,360).
type Orientation struct {
	Rotation         int
	MirrorHorizontal bool
}

// NormalizeRotation maps any angle in degrees into [0,360).
func NormalizeRotation(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

// IsQuarterTurn reports whether rotation exchanges width and height.
func IsQuarterTurn(rotation int) bool {
	r := NormalizeRotation(rotation)
	return r == 90 || r == 270
}

// ImageSize is the nominal size of a decoded resource with its rotation.
type ImageSize struct {
	Width    int
	Height   int
	Rotation int
}

// ImageInfo is produced once per decode.
type ImageInfo struct {
	Size        ImageSize
	Orientation Orientation
}

// Request is a single decode request.
type Request struct {
	Locator             string
	Target              TargetSize
	ConsiderOrientation bool
	// ImageKey identifies the request in logs.
	ImageKey string
}

// Spec tells a BaseDecoder how to materialize pixels.
type Spec struct {
	Target TargetSize
	// Rotation the caller will apply afterwards; quarter turns swap Target.
	Rotation int
	// Bounds is the source size from DecodeBounds, zero when unknown.
	Bounds image.Point
}
