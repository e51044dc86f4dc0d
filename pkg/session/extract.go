package session

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"github.com/codeGROOVE-dev/duostreak/pkg/heuristic"
	"github.com/codeGROOVE-dev/duostreak/pkg/htmlutil"
	"github.com/codeGROOVE-dev/duostreak/pkg/normalize"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

// Extraction sources, reported for logging.
const (
	SourceState     = "state"
	SourceHeuristic = "heuristic"
)

// labelSelector picks nodes that usually describe one course.
const labelSelector = `[data-test*="language"], [data-test*="course"], [class*="flag"], [class*="language"], img[alt], [aria-label]`

const maxLabels = 40

// Extract prefers an embedded state island and falls back to text heuristics.
func Extract(p Page) (*profile.Partial, string) {
	if partial, ok := FromState(p.HTML); ok {
		return partial, SourceState
	}
	text := p.Text
	if strings.TrimSpace(text) == "" {
		text = htmlutil.StripTags(p.HTML)
	}
	return heuristic.Extract(text, Labels(p.HTML)), SourceHeuristic
}

// FromState decodes each state island in priority order and maps the first one
// holding a user record.
func FromState(html string) (*profile.Partial, bool) {
	for _, blob := range htmlutil.StateBlobs(html) {
		tree, ok := decodeBlob(blob)
		if !ok {
			continue
		}
		user, ok := normalize.FindStateUser(tree)
		if !ok {
			continue
		}
		if p := normalize.Partial(user); !p.Empty() {
			return p, true
		}
	}
	return nil, false
}

// decodeBlob reads strict JSON first, then JavaScript object literals.
func decodeBlob(blob string) (any, bool) {
	if v, err := normalize.Decode([]byte(blob)); err == nil {
		return v, true
	}
	var v any
	if err := json5.Unmarshal([]byte(blob), &v); err != nil {
		return nil, false
	}
	return v, true
}

// Labels collects the text and descriptive attributes of course-like nodes.
func Labels(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	doc.Find(labelSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		parts := []string{strings.Join(strings.Fields(s.Text()), " ")}
		for _, attr := range []string{"alt", "title", "aria-label"} {
			if v, ok := s.Attr(attr); ok {
				parts = append(parts, strings.TrimSpace(v))
			}
		}
		label := strings.TrimSpace(strings.Join(parts, " "))
		if label != "" && !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
		return len(out) < maxLabels
	})
	return out
}
