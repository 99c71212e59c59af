// Package decode defines the request, orientation and error types shared by
// the decode pipeline, and the default base decoder for still images.
//
// The base decoder reads bounds with image.DecodeConfig and pixels with
// imaging, falling back to libvips when enabled. It never applies
// orientation; callers do that with the geometry package once the
// orientation metadata is known.
package decode
