package instagram

import (
	"strconv"
	"strings"
)

// ParseCount parses header count text such as "1,234", "1.5K", "2M" or
// "691 followers". Unreadable text yields 0.
func ParseCount(text string) int {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))

	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}

	rest := strings.TrimSpace(s[end:])
	if rest != "" {
		switch rest[0] {
		case 'K':
			value *= 1e3
		case 'M':
			value *= 1e6
		case 'B':
			value *= 1e9
		}
	}
	return int(value)
}

// countsFromTexts scans header texts for "followers" and "following",
// keeping the first non-zero value of each
func countsFromTexts(texts []string, followers, following int) (int, int) {
	for _, t := range texts {
		lower := strings.ToLower(t)
		switch {
		case strings.Contains(lower, "followers") && followers == 0:
			followers = ParseCount(t)
		case strings.Contains(lower, "following") && following == 0:
			following = ParseCount(t)
		}
	}
	return followers, following
}
