package mention

import "regexp"

// handleRe matches @handles: 3-30 word characters, not preceded by a word
// character (so emails don't count as mentions).
var handleRe = regexp.MustCompile(`(^|[^\w@])@(\w{3,30})\b`)

// Extract returns the distinct @-mentioned handles in body, in first-seen
// order. Resolution against real users happens at notification time.
func Extract(body string) []string {
	matches := handleRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var handles []string
	for _, m := range matches {
		h := m[2]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		handles = append(handles, h)
	}
	return handles
}
