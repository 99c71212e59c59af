// Package motion extracts thumbnails from motion-media.
//
// An Extractor tries, in order:
//
//  1. the cover picture embedded in the container's tags,
//  2. a frame sampled at a fixed offset (one second by default),
//  3. an external ThumbnailService run on the resource's backing file.
//
// Tiers 1 and 2 share a single retrieval Handle which is always closed before
// tier 3 runs. When all tiers come back empty Extract fails with
// decode.ErrCannotDecode.
//
// StreamRetriever and VideoThumbnailer are the default collaborators. They
// read tags with github.com/dhowden/tag and sample frames through ffmpeg.
package motion
