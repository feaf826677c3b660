package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"path"
)

// ErrMissingFileName is returned when a resource URL lacks its file name parameter
var ErrMissingFileName = errors.New("resource URL has no file name parameter")

// RewriteResourceURL derives a collision-resistant file name for a resource and returns the
// URL rewritten to download under that name. The name is "{stamp}_{resource_id}_{original}"
// where resource_id is the final path segment. A download=True parameter is added when the
// URL has none. Pure and deterministic: query parameters are re-encoded in sorted order.
func RewriteResourceURL(rawURL string, stamp string, fileNameParam string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid resource URL %q: %w", rawURL, err)
	}

	query := u.Query()
	original := query.Get(fileNameParam)
	if original == "" {
		return "", "", fmt.Errorf("%w %q: %s", ErrMissingFileName, fileNameParam, rawURL)
	}

	resourceID := lastPathSegment(u.Path)
	filename := fmt.Sprintf("%s_%s_%s", stamp, resourceID, original)

	query.Set(fileNameParam, filename)
	if !query.Has("download") {
		query.Set("download", "True")
	}
	u.RawQuery = query.Encode()

	return u.String(), filename, nil
}

// lastPathSegment returns the final non-empty segment of a URL path
func lastPathSegment(p string) string {
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// lastURLSegment returns the final path segment of rawURL, ignoring query and fragment
func lastURLSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return lastPathSegment(rawURL)
	}
	return lastPathSegment(u.Path)
}
