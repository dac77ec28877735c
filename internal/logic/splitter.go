package logic

import (
	"log"
	"regexp"
	"strings"
)

// turnMarkers end the completion scan when a line starts with one of them
var turnMarkers = []string{"you:", "<start>", "<end>", "<user>", "user:"}

// SplitCompletion turns a raw completion into the reply body for charName.
//
// With multiLine off only the first line is returned. Otherwise lines are
// scanned until one opens a turn for the user (userLabel:, you:, <start>,
// <end>, <user>, user:). Each "charName:" header line starts a new segment;
// segments are stripped of the header and joined with newlines.
//
// Lines matching a configured stop entry are reported but not truncated.
func SplitCompletion(charName, completion, userLabel string, stopList []string, multiLine bool) string {
	lines := strings.Split(completion, "\n")
	if !multiLine {
		return lines[0]
	}

	header := strings.ToLower(charName) + ":"
	userMarker := strings.ToLower(userLabel) + ":"
	headerPattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(charName+":"))

	var segments []string
	current := ""
	first := true

	flush := func() {
		stripped := strings.TrimSpace(headerPattern.ReplaceAllString(current, ""))
		if stripped == "" {
			return
		}
		segments = append(segments, stripped)
	}

	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, userMarker) || hasAnyPrefix(lower, turnMarkers) {
			break
		}
		for _, stop := range stopList {
			if stop != "" && strings.HasPrefix(lower, strings.ToLower(stop)) {
				log.Printf("[Splitter] Line matches stop entry, kept stop=%q", stop)
				break
			}
		}

		if strings.HasPrefix(lower, header) {
			first = false
			flush()
			current = line
			continue
		}
		if current != "" || first {
			if first {
				current += line
			} else {
				current += "\n" + line
			}
		}
		first = false
	}
	flush()

	return strings.Join(segments, "\n")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
