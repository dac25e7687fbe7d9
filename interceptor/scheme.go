// Package interceptor routes manifest loads through the rewriter instead of
// letting the media engine fetch them directly. A manifest URL is wrapped in
// a custom scheme marker before it is handed to the engine; loads carrying a
// marker scheme are intercepted, fetched, rewritten against the current
// selection, and answered with the rewritten bytes. Everything else is
// declined and fetched by the engine as normal.
package interceptor

import "strings"

// SchemeMap holds the custom scheme markers substituted for http and https.
type SchemeMap struct {
	HTTP  string
	HTTPS string
}

// DefaultSchemes returns the scheme markers used when none are configured.
func DefaultSchemes() SchemeMap {
	return SchemeMap{HTTP: "panoplay-http", HTTPS: "panoplay-https"}
}

// Mark substitutes the custom marker for the URL scheme. URLs with any other
// scheme are returned unchanged. The substitution is a pure prefix swap so
// that Unmark reverses it losslessly.
func (s SchemeMap) Mark(rawURL string) string {
	if rest, ok := strings.CutPrefix(rawURL, "https://"); ok {
		return s.HTTPS + "://" + rest
	}
	if rest, ok := strings.CutPrefix(rawURL, "http://"); ok {
		return s.HTTP + "://" + rest
	}
	return rawURL
}

// Unmark recovers the original http(s) URL from a marked one. Unmarked URLs
// are returned unchanged.
func (s SchemeMap) Unmark(rawURL string) string {
	if rest, ok := strings.CutPrefix(rawURL, s.HTTPS+"://"); ok {
		return "https://" + rest
	}
	if rest, ok := strings.CutPrefix(rawURL, s.HTTP+"://"); ok {
		return "http://" + rest
	}
	return rawURL
}

// Marked reports whether the URL carries one of the marker schemes.
func (s SchemeMap) Marked(rawURL string) bool {
	return strings.HasPrefix(rawURL, s.HTTP+"://") || strings.HasPrefix(rawURL, s.HTTPS+"://")
}
