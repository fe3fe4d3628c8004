package service

import (
	"regexp"
	"strings"
)

const maxMentions = 10

var mentionPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_.@])@([A-Za-z0-9_.]{1,64})`)

// ParseMentions returns the distinct lower-cased @handles in text, in order
// of first appearance.
func ParseMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		handle := strings.ToLower(strings.TrimRight(m[1], "."))
		if handle == "" {
			continue
		}
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}
		out = append(out, handle)
		if len(out) == maxMentions {
			break
		}
	}
	return out
}
