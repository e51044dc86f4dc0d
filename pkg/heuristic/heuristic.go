// Package heuristic extracts profile facts from rendered page text when no
// structured payload is reachable. Every rule is a pure function; for each field
// the first rule that yields a value wins.
package heuristic

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/duostreak/pkg/normalize"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

// number captures an optional sign and a count with optional thousands
// separators ("120,609", "1\u00a0234"). A signed count never matches a rule.
const number = `([-\x{2212}]?)(\d{1,3}(?:[,.\x{00A0}\x{202F}]\d{3})+|\d+)`

// lead keeps a number from starting in the middle of another one.
const lead = `(?:^|[^\d\-\x{2212}])`

// spaces folds the no-break spaces rendered pages use around words.
var spaces = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// IntRule extracts one integer from text.
type IntRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Match returns the rule's first match as a non-negative count.
func (r IntRule) Match(text string) (int, bool) {
	return signedCount(r.Pattern.FindStringSubmatch(text))
}

// signedCount reads the sign and digits captured by number.
func signedCount(m []string) (int, bool) {
	if len(m) < 3 || m[1] != "" {
		return 0, false
	}
	return normalize.ParseCount(m[2])
}

// compile makes pattern case-insensitive and lets \s also cover no-break spaces.
func compile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + strings.ReplaceAll(pattern, `\s`, `[\s\x{00A0}\x{202F}]`))
}

func intRule(name, pattern string) IntRule {
	return IntRule{Name: name, Pattern: compile(pattern)}
}

// Rules, in priority order.
var (
	StreakRules = []IntRule{
		intRule("day streak", lead+number+`\s*-?\s*days?\s+streak`),
		intRule("días de racha", lead+number+`\s*d[ií]as?\s+de\s+racha`),
		intRule("racha de días", `racha\s+de\s+`+number+`\s*d[ií]as?`),
	}
	TotalXPRules = []IntRule{
		intRule("total xp", lead+number+`\s*total\s+xp\b`),
		intRule("exp totales", lead+number+`\s*exp\s+totales`),
		intRule("xp", lead+number+`\s*(?:xp|exp)\b`),
	}
	Top3Rules = []IntRule{
		intRule("times in top 3", lead+number+`\s*times?\s+in\s+(?:the\s+)?top\s*3\b`),
		intRule("veces en el top 3", lead+number+`\s*(?:veces|vez)\s+en\s+el\s+top\s*3\b`),
		intRule("top 3 finishes", lead+number+`\s*top\s*3\s+finish`),
	}
)

// FirstInt applies rules in order and returns the first valid match.
func FirstInt(rules []IntRule, text string) (int, bool) {
	for _, r := range rules {
		if n, ok := r.Match(text); ok {
			return n, true
		}
	}
	return 0, false
}

// Extract pulls whatever facts it can from rendered text and DOM candidate labels.
// Anything that does not match stays absent.
func Extract(text string, labels []string) *profile.Partial {
	p := &profile.Partial{}
	if n, ok := FirstInt(StreakRules, text); ok {
		p.StreakDays = profile.Int(n)
	}
	if n, ok := FirstInt(TotalXPRules, text); ok {
		p.TotalXP = profile.Int(n)
	}
	if n, ok := FirstInt(Top3Rules, text); ok {
		p.Top3Count = profile.Int(n)
	}
	text = spaces.Replace(text)
	p.League = League(text)
	p.Languages = Languages(text, labels)
	return p
}

// wordPattern matches any of words as a whole word. Go's \b is ASCII-only, so
// letter boundaries are spelled out to cope with accented names like "Rubí".
func wordPattern(prefix, suffix string, words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(w), ` `, `\s+`)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}])` + prefix + `(` + strings.Join(quoted, "|") + `)` + suffix + `(?:[^\p{L}]|$)`)
}

type leagueRule struct {
	name       string
	contextual []*regexp.Regexp
	bare       *regexp.Regexp
}

var leagueRules = func() []leagueRule {
	rules := make([]leagueRule, 0, len(profile.Leagues))
	for _, name := range profile.Leagues {
		words := []string{name}
		for syn, canon := range profile.LeagueSynonyms {
			if canon == name {
				words = append(words, syn)
			}
		}
		rules = append(rules, leagueRule{
			name: name,
			contextual: []*regexp.Regexp{
				wordPattern(``, `\s+league`, words...),
				wordPattern(`(?:liga|divisi[oó]n)\s+(?:de\s+)?`, ``, words...),
			},
			bare: wordPattern(``, ``, words...),
		})
	}
	return rules
}()

// League finds a league tier. Names next to "League"/"Liga"/"División" are
// preferred over a bare mention; ties go to table order.
func League(text string) string {
	for _, r := range leagueRules {
		for _, re := range r.contextual {
			if re.MatchString(text) {
				return r.name
			}
		}
	}
	for _, r := range leagueRules {
		if r.bare.MatchString(text) {
			return r.name
		}
	}
	return ""
}
