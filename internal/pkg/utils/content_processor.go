package utils

import (
	"regexp"
	"strings"
)

// Hashtags may contain Japanese characters; mentions follow the account
// name rules (ASCII word characters).
var (
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`@(\w{3,30})`)
)

// ExtractHashtags returns the unique hashtags in a post body, without the
// leading #, in order of first appearance.
func ExtractHashtags(content string) []string {
	return extractUnique(hashtagRe, content)
}

// ExtractMentions returns the unique account names mentioned in a post
// body, without the leading @, in order of first appearance.
func ExtractMentions(content string) []string {
	return extractUnique(mentionRe, content)
}

func extractUnique(re *regexp.Regexp, content string) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m[1])
	}
	return out
}
