package profile

import (
	"sort"
	"strings"
)

// Course is one entry of the supported-course lexicon.
type Course struct {
	Code    string
	Name    string   // canonical English name
	Aliases []string // localized names
}

// Courses is the lexicon of course names the site offers, in English and Spanish.
var Courses = []Course{
	{"es", "Spanish", []string{"Español"}},
	{"en", "English", []string{"Inglés"}},
	{"fr", "French", []string{"Francés"}},
	{"de", "German", []string{"Alemán"}},
	{"it", "Italian", []string{"Italiano"}},
	{"pt", "Portuguese", []string{"Portugués"}},
	{"ja", "Japanese", []string{"Japonés"}},
	{"ko", "Korean", []string{"Coreano"}},
	{"zh", "Chinese", []string{"Chino"}},
	{"ru", "Russian", []string{"Ruso"}},
	{"ar", "Arabic", []string{"Árabe"}},
	{"eo", "Esperanto", nil},
	{"tr", "Turkish", []string{"Turco"}},
	{"hi", "Hindi", nil},
	{"nl", "Dutch", []string{"Neerlandés"}},
	{"sv", "Swedish", []string{"Sueco"}},
	{"no", "Norwegian", []string{"Noruego"}},
	{"pl", "Polish", []string{"Polaco"}},
	{"el", "Greek", []string{"Griego"}},
	{"ga", "Irish", []string{"Irlandés"}},
	{"he", "Hebrew", []string{"Hebreo"}},
	{"uk", "Ukrainian", []string{"Ucraniano"}},
	{"cs", "Czech", []string{"Checo"}},
	{"id", "Indonesian", []string{"Indonesio"}},
	{"ro", "Romanian", []string{"Rumano"}},
	{"da", "Danish", []string{"Danés"}},
	{"fi", "Finnish", []string{"Finlandés", "Finés"}},
	{"hu", "Hungarian", []string{"Húngaro"}},
	{"th", "Thai", []string{"Tailandés"}},
	{"vi", "Vietnamese", []string{"Vietnamita"}},
	{"sw", "Swahili", []string{"Suajili"}},
	{"ht", "Haitian Creole", []string{"Criollo haitiano"}},
	{"cy", "Welsh", []string{"Galés"}},
	{"hv", "High Valyrian", []string{"Alto valyrio"}},
	{"nv", "Navajo", nil},
	{"la", "Latin", []string{"Latín"}},
	{"gd", "Scottish Gaelic", []string{"Gaélico escocés"}},
	{"yi", "Yiddish", []string{"Ídish", "Yidis"}},
	{"zu", "Zulu", []string{"Zulú"}},
	{"tlh", "Klingon", nil},
	{"ca", "Catalan", []string{"Catalán"}},
	{"gl", "Galician", []string{"Gallego"}},
	{"eu", "Basque", []string{"Euskera", "Vasco"}},
}

var courseByName = func() map[string]Course {
	m := make(map[string]Course)
	for _, c := range Courses {
		m[strings.ToLower(c.Name)] = c
		for _, a := range c.Aliases {
			m[strings.ToLower(a)] = c
		}
	}
	return m
}()

// LookupCourse finds a course by English or Spanish name, case-insensitively.
func LookupCourse(name string) (Course, bool) {
	c, ok := courseByName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Key identifies a language entry: its code, else its lower-cased name.
func (l Language) Key() string {
	if l.Code != "" {
		return strings.ToLower(l.Code)
	}
	return strings.ToLower(strings.TrimSpace(l.Name))
}

func (l Language) info() int {
	n := 0
	if l.XP != nil {
		n++
	}
	if l.Level != nil {
		n++
	}
	return n
}

// Overlay returns base with every field present in top taking precedence.
func Overlay(base, top Language) Language {
	out := base
	if top.Name != "" {
		out.Name = top.Name
	}
	if top.Code != "" {
		out.Code = top.Code
	}
	if top.XP != nil {
		out.XP = top.XP
	}
	if top.Level != nil {
		out.Level = top.Level
	}
	return out
}

// preferred picks which of two duplicates should win: higher XP, then more fields.
func preferred(a, b Language) (winner, loser Language) {
	switch {
	case a.XP != nil && b.XP != nil:
		if *b.XP > *a.XP {
			return b, a
		}
		return a, b
	case b.info() > a.info():
		return b, a
	default:
		return a, b
	}
}

// NormalizeLanguages drops unnamed entries, merges duplicate keys and orders
// entries with known XP first by descending XP, the rest in source order.
func NormalizeLanguages(langs []Language) []Language {
	out := make([]Language, 0, len(langs))
	index := make(map[string]int)
	for _, l := range langs {
		l.Name = strings.TrimSpace(l.Name)
		l.Code = strings.ToLower(strings.TrimSpace(l.Code))
		if l.XP != nil && *l.XP < 0 {
			l.XP = nil
		}
		if l.Level != nil && *l.Level < 0 {
			l.Level = nil
		}
		key := l.Key()
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			winner, loser := preferred(out[i], l)
			out[i] = Overlay(loser, winner)
			continue
		}
		index[key] = len(out)
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].XP, out[j].XP
		switch {
		case a != nil && b != nil:
			return *a > *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return out
}
