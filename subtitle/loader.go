package subtitle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/asticode/go-astisub"

	"github.com/panoplay/panoplay/fetcher"
)

// ErrUnsupportedFormat is returned for subtitle files whose extension maps to
// no known format.
var ErrUnsupportedFormat = errors.New("subtitle: unsupported format")

// ParseError wraps a subtitle parsing failure with the format being parsed.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s subtitles: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Format identifies a subtitle file format.
type Format string

// Accepted subtitle formats
const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatSBV Format = "sbv"
	FormatSSA Format = "ssa"
	FormatASS Format = "ass"
)

// DetectFormat maps a file name or URL path to its subtitle format by
// extension.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	switch ext {
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "sbv":
		return FormatSBV, nil
	case "ssa":
		return FormatSSA, nil
	case "ass":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Parse reads cues from r in the given format. SRT, WebVTT and SSA/ASS are
// delegated to the astisub collaborator; SBV is parsed in-package.
func Parse(r io.Reader, format Format) ([]Cue, error) {
	if format == FormatSBV {
		return parseSBV(r)
	}

	var subs *astisub.Subtitles
	var err error
	switch format {
	case FormatSRT:
		subs, err = astisub.ReadFromSRT(r)
	case FormatVTT:
		subs, err = astisub.ReadFromWebVTT(r)
	case FormatSSA, FormatASS:
		subs, err = astisub.ReadFromSSA(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}

	cues := make([]Cue, 0, len(subs.Items))
	for i, item := range subs.Items {
		cues = append(cues, Cue{
			ID:        i + 1,
			StartTime: item.StartAt.Seconds(),
			EndTime:   item.EndAt.Seconds(),
			Text:      itemText(item),
		})
	}
	return cues, nil
}

// LoadFile reads and parses a subtitle file from disk.
func LoadFile(filePath string) ([]Cue, error) {
	format, err := DetectFormat(filePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open subtitle file: %w", err)
	}
	defer f.Close()

	return Parse(f, format)
}

// LoadURL fetches and parses a remote subtitle file. Network failures
// surface as the fetcher's typed error; no retry is attempted.
func LoadURL(ctx context.Context, fetch fetcher.Interface, rawURL string) ([]Cue, error) {
	format, err := DetectFormat(rawURL)
	if err != nil {
		return nil, err
	}

	content, err := fetch.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return Parse(bytes.NewReader(content), format)
}

func itemText(item *astisub.Item) string {
	var lines []string
	for _, line := range item.Lines {
		var parts []string
		for _, li := range line.Items {
			if li.Text != "" {
				parts = append(parts, li.Text)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

var sbvTimingRe = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{3}),(\d+):(\d{2}):(\d{2})\.(\d{3})$`)

// parseSBV reads YouTube SBV: a timing line "h:mm:ss.mmm,h:mm:ss.mmm"
// followed by text lines, entries separated by blank lines.
func parseSBV(r io.Reader) ([]Cue, error) {
	var cues []Cue
	var current *Cue

	flush := func() {
		if current != nil {
			current.Text = strings.TrimRight(current.Text, "\n")
			cues = append(cues, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if m := sbvTimingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			current = &Cue{
				ID:        len(cues) + 1,
				StartTime: sbvSeconds(m[1], m[2], m[3], m[4]),
				EndTime:   sbvSeconds(m[5], m[6], m[7], m[8]),
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			return nil, &ParseError{Format: FormatSBV, Err: fmt.Errorf("text before first timing line: %q", line)}
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += line
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Format: FormatSBV, Err: err}
	}
	if len(cues) == 0 {
		return nil, &ParseError{Format: FormatSBV, Err: errors.New("no cues found")}
	}
	return cues, nil
}

func sbvSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
}
