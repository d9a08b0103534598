package chapters

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shelf/internal/toolrunner"
)

const (
	markerPrefix = "Chapter "
	startLabel   = "start "
	titlePrefix  = "title"
)

// Marker is one chapter boundary mined from diagnostic output.
type Marker struct {
	Start time.Duration `json:"start"`
	Title string        `json:"title,omitempty"`
}

// Parse mines chapter markers from the tool's diagnostic text. Text with no
// recognizable markers yields an empty slice; a marker line whose offset
// does not parse is a typed parse failure.
func Parse(diagnostic string) ([]Marker, error) {
	markers := make([]Marker, 0, 8)
	scanner := bufio.NewScanner(strings.NewReader(diagnostic))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, markerPrefix):
			start, err := parseStart(line)
			if err != nil {
				return nil, err
			}
			markers = append(markers, Marker{Start: start})
		case strings.HasPrefix(line, titlePrefix):
			if title, ok := parseTitle(line); ok && len(markers) > 0 {
				last := &markers[len(markers)-1]
				if last.Title == "" {
					last.Title = title
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, toolrunner.Wrap(toolrunner.ErrParse, "chapters", "scan", "diagnostic text unreadable", err)
	}
	return markers, nil
}

func parseStart(line string) (time.Duration, error) {
	idx := strings.Index(line, startLabel)
	if idx < 0 {
		return 0, toolrunner.Wrap(toolrunner.ErrParse, "chapters", "offset", fmt.Sprintf("marker line missing start label: %q", line), nil)
	}
	value := line[idx+len(startLabel):]
	if comma := strings.IndexByte(value, ','); comma >= 0 {
		value = value[:comma]
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds < 0 {
		return 0, toolrunner.Wrap(toolrunner.ErrParse, "chapters", "offset", fmt.Sprintf("invalid start offset in %q", line), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func parseTitle(line string) (string, bool) {
	rest := strings.TrimPrefix(line, titlePrefix)
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return "", false
	}
	// Everything before the colon is tag-name padding in the tool's
	// metadata block; anything else means this is not a title line.
	if strings.TrimSpace(rest[:colon]) != "" {
		return "", false
	}
	title := strings.TrimSpace(rest[colon+1:])
	if title == "" {
		return "", false
	}
	return title, true
}
