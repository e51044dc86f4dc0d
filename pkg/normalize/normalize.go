package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

// Field aliases, most recent upstream naming first.
var (
	StreakPaths = []Path{
		P("streak"),
		P("site_streak"),
		P("streakData.currentStreak.length"),
		P("streakData.length"),
		P("streakLength"),
	}
	TotalXPPaths = []Path{
		P("totalXp"),
		P("total_xp"),
		P("totalXP"),
	}
	LeaguePaths = []Path{
		P("league"),
		P("leagueName"),
		P("currentLeague"),
		P("leaderboardLeague"),
		P("tier"),
		P("leaderboard.tier"),
	}
	Top3Paths = []Path{
		P("top3Count"),
		P("topThreeCount"),
		P("top3Finishes"),
		P("numTop3Finishes"),
	}
	CourseContainers = []Path{
		P("courses"),
		P("language_data"),
		P("learningLanguages"),
		P("languages"),
	}
	CourseNamePaths  = []Path{P("title"), P("language_string"), P("languageName"), P("name")}
	CourseCodePaths  = []Path{P("learningLanguage"), P("language"), P("languageCode"), P("code")}
	CourseXPPaths    = []Path{P("xp"), P("points"), P("experience"), P("xpGained"), P("totalXp")}
	CourseLevelPaths = []Path{P("level"), P("crowns"), P("crownLevel")}

	AchievementContainers = []Path{P("achievements"), P("_achievements"), P("badges")}
	AchievementNamePaths  = []Path{P("name"), P("title"), P("achievementName")}
)

// Decode parses a JSON document keeping numbers exact.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// UserObject locates the user record inside an API payload: the first entry of
// "users", the payload itself, or the first nested object that looks like a user.
func UserObject(payload any) (map[string]any, error) {
	if u, ok := Lookup(payload, P("users.0")); ok {
		if m, ok := u.(map[string]any); ok {
			return m, nil
		}
	}
	if m, ok := payload.(map[string]any); ok && looksLikeUser(m) {
		return m, nil
	}
	if m := search(payload, looksLikeUser); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("no user object in payload: %w", profile.ErrProfileNotFound)
}

// FindStateUser deep-searches a client-side state tree for the first object
// exposing both a streak-like field and a course-like container.
func FindStateUser(tree any) (map[string]any, bool) {
	m := search(tree, func(m map[string]any) bool {
		return hasAny(m, StreakPaths) && hasAny(m, CourseContainers)
	})
	return m, m != nil
}

func looksLikeUser(m map[string]any) bool {
	return hasAny(m, StreakPaths) || hasAny(m, CourseContainers) || hasAny(m, TotalXPPaths)
}

func hasAny(m map[string]any, paths []Path) bool {
	_, ok := First(m, paths)
	return ok
}

// search walks the tree breadth first and returns the first matching object.
func search(root any, match func(map[string]any) bool) map[string]any {
	queue := []any{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		switch node := cur.(type) {
		case map[string]any:
			if match(node) {
				return node
			}
			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				queue = append(queue, node[k])
			}
		case []any:
			queue = append(queue, node...)
		}
	}
	return nil
}

// Partial maps a user object onto the canonical partial record.
// Fields the object does not carry stay absent rather than zero.
func Partial(user map[string]any) *profile.Partial {
	p := &profile.Partial{}
	if n, ok := FirstInt(user, StreakPaths); ok {
		p.StreakDays = profile.Int(n)
	}
	if n, ok := FirstInt(user, TotalXPPaths); ok {
		p.TotalXP = profile.Int(n)
	}
	if n, ok := FirstInt(user, Top3Paths); ok {
		p.Top3Count = profile.Int(n)
	}
	p.League = league(user)
	p.Languages = profile.NormalizeLanguages(Courses(user))
	p.Achievements = achievements(user)
	return p
}

func league(user map[string]any) string {
	for _, path := range LeaguePaths {
		v, ok := Lookup(user, path)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			if name := profile.LeagueName(s); name != "" {
				return name
			}
			continue
		}
		if n, ok := AsInt(v); ok {
			if name := profile.LeagueTier(n); name != "" {
				return name
			}
		}
	}
	return ""
}

// Courses resolves the first course container and maps each element.
// Containers may be arrays of objects or objects keyed by language code.
func Courses(user map[string]any) []profile.Language {
	for _, path := range CourseContainers {
		v, ok := Lookup(user, path)
		if !ok {
			continue
		}
		var out []profile.Language
		switch c := v.(type) {
		case []any:
			for _, el := range c {
				if l, ok := course(el, ""); ok {
					out = append(out, l)
				}
			}
		case map[string]any:
			codes := make([]string, 0, len(c))
			for k := range c {
				codes = append(codes, k)
			}
			sort.Strings(codes)
			for _, code := range codes {
				if l, ok := course(c[code], code); ok {
					out = append(out, l)
				}
			}
		default:
			continue
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func course(el any, keyCode string) (profile.Language, bool) {
	if s, ok := el.(string); ok {
		return fromName(s), strings.TrimSpace(s) != ""
	}
	m, ok := el.(map[string]any)
	if !ok {
		return profile.Language{}, false
	}
	// Legacy payloads list every offered course and flag the ones being studied.
	if learning, ok := m["learning"].(bool); ok && !learning {
		return profile.Language{}, false
	}
	var l profile.Language
	l.Name, _ = FirstString(m, CourseNamePaths)
	l.Code, _ = FirstString(m, CourseCodePaths)
	if l.Code == "" {
		l.Code = keyCode
	}
	if l.Code == "" && l.Name != "" {
		l.Code = fromName(l.Name).Code
	}
	if l.Name == "" && l.Code != "" {
		l.Name = nameFromCode(l.Code)
	}
	if n, ok := FirstInt(m, CourseXPPaths); ok {
		l.XP = profile.Int(n)
	}
	if n, ok := FirstInt(m, CourseLevelPaths); ok {
		l.Level = profile.Int(n)
	}
	return l, l.Key() != ""
}

func fromName(name string) profile.Language {
	name = strings.TrimSpace(name)
	if c, ok := profile.LookupCourse(name); ok {
		return profile.Language{Name: c.Name, Code: c.Code}
	}
	return profile.Language{Name: name}
}

func nameFromCode(code string) string {
	for _, c := range profile.Courses {
		if strings.EqualFold(c.Code, code) {
			return c.Name
		}
	}
	return ""
}

func achievements(user map[string]any) []profile.Achievement {
	v, ok := First(user, AchievementContainers)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []profile.Achievement
	for _, el := range list {
		var name string
		switch a := el.(type) {
		case string:
			name = strings.TrimSpace(a)
		case map[string]any:
			name, _ = FirstString(a, AchievementNamePaths)
		}
		if name != "" {
			out = append(out, profile.Achievement{Name: name})
		}
	}
	return out
}
