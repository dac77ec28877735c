package logic

import (
	"strings"

	"construct-chat/internal/models"
)

// ContainsName reports whether text mentions name, ignoring case and
// surrounding whitespace
func ContainsName(text, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(text)), name)
}

// MentionedConstruct returns the index of the first construct named in text, or -1
func MentionedConstruct(text string, constructs []models.Construct) int {
	for i, c := range constructs {
		if ContainsName(text, c.Name) {
			return i
		}
	}
	return -1
}

// ReorderByMention returns a copy of constructs with the first one mentioned
// in text moved to the front. The relative order of the others is kept.
func ReorderByMention(text string, constructs []models.Construct) []models.Construct {
	out := make([]models.Construct, 0, len(constructs))
	i := MentionedConstruct(text, constructs)
	if i < 0 {
		return append(out, constructs...)
	}
	out = append(out, constructs[i])
	out = append(out, constructs[:i]...)
	return append(out, constructs[i+1:]...)
}
