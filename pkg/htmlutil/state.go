package htmlutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	// Pattern to extract __NEXT_DATA__ JSON.
	nextDataPattern = regexp.MustCompile(`(?s)<script[^>]+id=["']__NEXT_DATA__["'][^>]*>(.+?)</script>`)
	// Inline JSON islands, including JSON-LD.
	jsonScriptPattern = regexp.MustCompile(`(?is)<script[^>]+type=["']application/(?:ld\+)?json["'][^>]*>(.+?)</script>`)
	// window.__INITIAL_STATE__ = {...}, window.__PRELOADED_STATE__={...}, window.duo.state = {...}
	stateAssignPattern = regexp.MustCompile(`(?:window|self|globalThis)\.(?:__[A-Z_]*STATE__|__APOLLO_STATE__|duo\.[A-Za-z_.]+)\s*=\s*`)
)

// StateBlobs returns the embedded client-side state islands in priority order:
// __NEXT_DATA__, other JSON script tags, then JavaScript state assignments.
// Assignment blobs are JavaScript object literals and may need a lenient decoder.
func StateBlobs(htmlContent string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	if m := nextDataPattern.FindStringSubmatch(htmlContent); len(m) > 1 {
		add(m[1])
	}
	for _, m := range jsonScriptPattern.FindAllStringSubmatch(htmlContent, -1) {
		add(unescapeIfEncoded(m[1]))
	}
	for _, loc := range stateAssignPattern.FindAllStringIndex(htmlContent, -1) {
		if obj := BalancedObject(htmlContent[loc[1]:]); obj != "" {
			add(obj)
		}
	}
	return out
}

// unescapeIfEncoded handles islands whose JSON was HTML-entity encoded.
func unescapeIfEncoded(s string) string {
	if strings.Contains(s, "&quot;") {
		return html.UnescapeString(s)
	}
	return s
}

// BalancedObject returns the leading {...} or [...] literal of s, honoring
// quoted strings and escapes. It returns "" when s does not start with one or
// the literal never closes.
func BalancedObject(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return ""
	}
	depth := 0
	var quote byte
	escaped := false
	for i := range len(s) {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
