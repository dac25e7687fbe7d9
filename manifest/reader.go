package manifest

import (
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Tags interpreted by the parser; all other playlist tags pass through
// untouched by this package.
const (
	StreamInfTag = "#EXT-X-STREAM-INF:"
	MediaTag     = "#EXT-X-MEDIA:"
)

// ErrNotText is returned when the manifest payload is not valid UTF-8.
var ErrNotText = errors.New("manifest: payload is not valid UTF-8 text")

var (
	resolutionRe   = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)
	avgBandwidthRe = regexp.MustCompile(`AVERAGE-BANDWIDTH=(\d+)`)
	// Leading separator keeps this from matching inside AVERAGE-BANDWIDTH.
	bandwidthRe = regexp.MustCompile(`(?:^|[,:])BANDWIDTH=(\d+)`)
)

// Parse extracts the rendition ladder and alternate audio list from master
// playlist text. Variant URIs are resolved against base when relative. The
// returned sequences are sorted per the Rung and AudioOption orderings and
// may both be empty for a playlist with no variants.
func Parse(data []byte, base *url.URL) (Ladder, AudioList, error) {
	if !utf8.Valid(data) {
		return nil, nil, ErrNotText
	}

	lines := strings.Split(string(data), "\n")

	ladder := parseRungs(lines, base)
	audio := parseAudio(lines, base)

	sort.SliceStable(ladder, func(i, j int) bool { return ladder[i].Less(ladder[j]) })
	sort.SliceStable(audio, func(i, j int) bool { return audio[i].Less(audio[j]) })

	return ladder, audio, nil
}

// parseRungs scans for #EXT-X-STREAM-INF declarations. The rendition URI is
// the next non-empty line after the tag. Declarations with neither bandwidth
// attribute, or with no following line, are discarded.
func parseRungs(lines []string, base *url.URL) Ladder {
	var ladder Ladder

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, StreamInfTag) {
			continue
		}

		var rung Rung
		if m := resolutionRe.FindStringSubmatch(line); m != nil {
			rung.Width, _ = strconv.Atoi(m[1])
			rung.Height, _ = strconv.Atoi(m[2])
		}
		if m := avgBandwidthRe.FindStringSubmatch(line); m != nil {
			rung.AverageBitrate, _ = strconv.Atoi(m[1])
		}
		if m := bandwidthRe.FindStringSubmatch(line); m != nil {
			rung.PeakBitrate, _ = strconv.Atoi(m[1])
		}
		if rung.AverageBitrate == 0 && rung.PeakBitrate == 0 {
			continue
		}

		uri := nextNonEmptyLine(lines, i+1)
		if uri == "" {
			continue
		}
		rung.URL = ResolveURI(base, uri)

		ladder = append(ladder, rung)
	}

	return ladder
}

// parseAudio scans for #EXT-X-MEDIA declarations of TYPE=AUDIO. GROUP-ID and
// URI are required; NAME and LANGUAGE default to the empty string so callers
// can fall back to group/name for display.
func parseAudio(lines []string, base *url.URL) AudioList {
	var audio AudioList

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, MediaTag) {
			continue
		}

		attrs := ParseAttributes(strings.TrimPrefix(line, MediaTag))
		if attrs["TYPE"] != "AUDIO" {
			continue
		}

		groupID := attrs["GROUP-ID"]
		uri := attrs["URI"]
		if groupID == "" || uri == "" {
			continue
		}

		audio = append(audio, AudioOption{
			URL:      ResolveURI(base, uri),
			GroupID:  groupID,
			Name:     attrs["NAME"],
			Language: attrs["LANGUAGE"],
		})
	}

	return audio
}

// nextNonEmptyLine returns the first non-blank line at or after index from,
// or "" when none exists.
func nextNonEmptyLine(lines []string, from int) string {
	for _, raw := range lines[min(from, len(lines)):] {
		if line := strings.TrimSpace(raw); line != "" {
			return line
		}
	}
	return ""
}

// ParseAttributes splits an HLS attribute list into a key/value map. Values
// may be quoted; commas inside quotes do not split attributes. Quotes are
// stripped from the returned values.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)

	var key strings.Builder
	var val strings.Builder
	inValue := false
	inQuotes := false

	flush := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			attrs[k] = val.String()
		}
		key.Reset()
		val.Reset()
		inValue = false
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == '=' && !inValue:
			inValue = true
		case r == ',' && !inQuotes:
			flush()
		case inValue:
			val.WriteRune(r)
		default:
			key.WriteRune(r)
		}
	}
	flush()

	return attrs
}

// IsAbsolute reports whether s parses as a URL carrying a host.
func IsAbsolute(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// ResolveURI resolves ref against base when ref is relative. Absolute URIs
// and unparsable references are returned unchanged.
func ResolveURI(base *url.URL, ref string) string {
	if base == nil || IsAbsolute(ref) {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
