package heuristic

import (
	"regexp"
	"sort"

	"github.com/codeGROOVE-dev/duostreak/pkg/normalize"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

type courseMatcher struct {
	course  profile.Course
	pattern *regexp.Regexp
}

var courseMatchers = func() []courseMatcher {
	out := make([]courseMatcher, 0, len(profile.Courses))
	for _, c := range profile.Courses {
		words := append([]string{c.Name}, c.Aliases...)
		out = append(out, courseMatcher{course: c, pattern: wordPattern(``, ``, words...)})
	}
	return out
}()

var (
	labelXP    = compile(lead + number + `\s*(?:xp|exp)\b`)
	labelLevel = []*regexp.Regexp{
		compile(`(?:level|nivel)\s*(\d+)`),
		compile(`(\d+)\s*(?:crowns?|coronas?)\b`),
	}
)

type found struct {
	pos  int
	lang profile.Language
}

// findCourses returns every lexicon course named in s, in order of appearance.
func findCourses(s string) []found {
	var out []found
	for _, m := range courseMatchers {
		loc := m.pattern.FindStringIndex(s)
		if loc == nil {
			continue
		}
		out = append(out, found{pos: loc[0], lang: profile.Language{Name: m.course.Name, Code: m.course.Code}})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// Languages intersects DOM candidate labels with the course lexicon. Without
// a usable label it falls back to whole-word matches in the page text. XP and level are
// only read from a label that names exactly one course.
func Languages(text string, labels []string) []profile.Language {
	var out []profile.Language
	for _, label := range labels {
		hits := findCourses(spaces.Replace(label))
		if len(hits) == 1 {
			hits[0].lang.XP, hits[0].lang.Level = labelNumbers(label)
		}
		for _, h := range hits {
			out = append(out, h.lang)
		}
	}
	if len(out) == 0 {
		for _, h := range findCourses(text) {
			out = append(out, h.lang)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return profile.NormalizeLanguages(out)
}

func labelNumbers(label string) (xp, level *int) {
	if n, ok := signedCount(labelXP.FindStringSubmatch(label)); ok {
		xp = profile.Int(n)
	}
	for _, re := range labelLevel {
		if m := re.FindStringSubmatch(label); len(m) > 1 {
			if n, ok := normalize.ParseCount(m[1]); ok {
				level = profile.Int(n)
				break
			}
		}
	}
	return xp, level
}
