// Package mediatypes holds the extension and MIME tables used to classify
// resources as still images or motion-media.
//
// It has no dependencies beyond the standard library so that any package can
// import it without creating cycles.
//
// # Classification
//
// A resource is motion-media iff its MIME type starts with "video/":
//
//	mediatypes.IsMotionMIME("video/mp4")  // true
//	mediatypes.IsMotionMIME("image/jpeg") // false
//
// When no better source is available the MIME type can be derived from a
// file extension:
//
//	mime := mediatypes.MimeTypeForPath("/media/clip.MOV") // "video/quicktime"
package mediatypes
