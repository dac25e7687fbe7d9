// Package rewriter filters HLS master playlist text down to a pinned
// rendition and audio track, optionally rewriting every URI to absolute form.
//
// The host media engine only understands the manifest it is given: pinning a
// rendition is achieved by making the filtered manifest the only information
// the engine ever sees, not by configuring the engine itself.
package rewriter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"net/url"

	"github.com/panoplay/panoplay/manifest"
)

var (
	// ErrRungFiltered is returned when the selected rendition matches no
	// stream-info entry, which would leave the manifest with an empty ladder.
	// It indicates a stale or mismatched selection.
	ErrRungFiltered = errors.New("rewriter: selected rendition not present in manifest")

	// ErrAudioFiltered is the audio-track equivalent of ErrRungFiltered.
	ErrAudioFiltered = errors.New("rewriter: selected audio track not present in manifest")
)

var uriAttrRe = regexp.MustCompile(`URI="([^"]*)"`)

// Options selects what Filter rewrites. A nil Rung/Audio means "keep all".
type Options struct {
	Rung       *manifest.Rung
	Audio      *manifest.AudioOption
	Absolutize bool
}

// Filter rewrites master playlist text per opts, working on the manifest as a
// sequence of lines. Tags other than #EXT-X-STREAM-INF and #EXT-X-MEDIA pass
// through unmodified. With zero-value opts the input is returned
// byte-identical.
//
// Each call is independent and side-effect-free on shared state, so one
// rewriter may serve any number of concurrent in-flight interceptions.
func Filter(content []byte, base *url.URL, opts Options) ([]byte, error) {
	if !utf8.Valid(content) {
		return nil, manifest.ErrNotText
	}
	if opts.Rung == nil && opts.Audio == nil && !opts.Absolutize {
		return content, nil
	}

	lines := strings.Split(string(content), "\n")
	out := make([]string, 0, len(lines))

	rungsKept := 0
	audioKept := 0

	for i := 0; i < len(lines); i++ {
		raw := lines[i]
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, manifest.StreamInfTag):
			// The rendition URI is the next non-empty line. A dangling tag
			// with no URI passes through untouched.
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j >= len(lines) {
				out = append(out, raw)
				continue
			}

			uri := strings.TrimSpace(lines[j])
			if opts.Rung != nil && !sameVariant(base, uri, opts.Rung.URL) {
				i = j
				continue
			}
			rungsKept++

			out = append(out, lines[i:j]...)
			if opts.Absolutize {
				out = append(out, manifest.ResolveURI(base, uri))
			} else {
				out = append(out, lines[j])
			}
			i = j

		case strings.HasPrefix(line, manifest.MediaTag):
			attrs := manifest.ParseAttributes(strings.TrimPrefix(line, manifest.MediaTag))
			if attrs["TYPE"] == "AUDIO" && opts.Audio != nil {
				if !sameVariant(base, attrs["URI"], opts.Audio.URL) {
					continue
				}
				audioKept++
			}
			out = append(out, absolutizeAttrs(raw, base, opts.Absolutize))

		default:
			out = append(out, absolutizeAttrs(raw, base, opts.Absolutize))
		}
	}

	if opts.Rung != nil && rungsKept == 0 {
		return nil, fmt.Errorf("rendition %q: %w", opts.Rung.URL, ErrRungFiltered)
	}
	if opts.Audio != nil && audioKept == 0 {
		return nil, fmt.Errorf("audio track %q: %w", opts.Audio.URL, ErrAudioFiltered)
	}

	return []byte(strings.Join(out, "\n")), nil
}

// sameVariant reports whether a manifest URI addresses the selected variant.
// Both sides are normalized to resolved absolute form before comparison, so
// the match tolerates relative URIs in the manifest.
func sameVariant(base *url.URL, uri, selected string) bool {
	if uri == "" {
		return false
	}
	return manifest.ResolveURI(base, uri) == selected
}

// absolutizeAttrs rewrites every URI="..." attribute on the line to absolute
// form when enabled.
func absolutizeAttrs(line string, base *url.URL, enabled bool) string {
	if !enabled || !strings.Contains(line, `URI="`) {
		return line
	}
	return uriAttrRe.ReplaceAllStringFunc(line, func(m string) string {
		uri := uriAttrRe.FindStringSubmatch(m)[1]
		return fmt.Sprintf("URI=%q", manifest.ResolveURI(base, uri))
	})
}
