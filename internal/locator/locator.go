// Package locator classifies resource locators by scheme.
//
// A locator is an opaque URI string such as "file:///media/a.jpg" or
// "content://media/external/video/42". It is used verbatim as a cache key;
// this package never normalizes it.
package locator

import (
	"path/filepath"
	"strings"
)

// Scheme is the scheme part of a locator.
type Scheme string

const (
	SchemeHTTP     Scheme = "http"
	SchemeHTTPS    Scheme = "https"
	SchemeFile     Scheme = "file"
	SchemeContent  Scheme = "content"
	SchemeAssets   Scheme = "assets"
	SchemeDrawable Scheme = "drawable"
	SchemeUnknown  Scheme = ""
)

var knownSchemes = []Scheme{
	SchemeHTTP, SchemeHTTPS, SchemeFile, SchemeContent, SchemeAssets, SchemeDrawable,
}

// Kind groups schemes by how their metadata is resolved.
type Kind int

const (
	// KindOther covers every scheme without local metadata access.
	KindOther Kind = iota
	// KindFile is a resource backed by a local file.
	KindFile
	// KindContent is a resource described by a content-store record.
	KindContent
)

// String returns the metric/log label of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindContent:
		return "content"
	default:
		return "other"
	}
}

// Of returns the scheme of uri, or SchemeUnknown. Matching is case-insensitive.
func Of(uri string) Scheme {
	for _, s := range knownSchemes {
		if s.belongsTo(uri) {
			return s
		}
	}
	return SchemeUnknown
}

func (s Scheme) prefix() string {
	return string(s) + "://"
}

func (s Scheme) belongsTo(uri string) bool {
	p := s.prefix()
	return len(uri) >= len(p) && strings.EqualFold(uri[:len(p)], p)
}

// Kind reports how resources of this scheme are inspected.
func (s Scheme) Kind() Kind {
	switch s {
	case SchemeFile:
		return KindFile
	case SchemeContent:
		return KindContent
	default:
		return KindOther
	}
}

// Wrap prepends the scheme to path.
func (s Scheme) Wrap(path string) string {
	return s.prefix() + path
}

// Crop removes the scheme prefix from uri. uri must belong to the scheme.
func (s Scheme) Crop(uri string) string {
	if !s.belongsTo(uri) {
		return uri
	}
	return uri[len(s.prefix()):]
}

// FilePath returns the local path of a file:// locator.
func FilePath(uri string) (string, bool) {
	if Of(uri) != SchemeFile {
		return "", false
	}
	path := SchemeFile.Crop(uri)
	if path == "" {
		return "", false
	}
	return path, true
}

// FromPath turns a local path into a file:// locator. Relative paths are
// made absolute first.
func FromPath(path string) string {
	if Of(path) != SchemeUnknown {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return SchemeFile.Wrap(filepath.ToSlash(path))
}
