package filesystem

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FileURL converts an absolute path to a file:// URL.
func FileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// ResolvePath converts a file:// URL back to a local path.
// Bare paths pass through unchanged.
func ResolvePath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
	}
	return filepath.FromSlash(u.Path)
}
