package normalize

import (
	"errors"
	"testing"

	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
	"github.com/google/go-cmp/cmp"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := Decode([]byte(s))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return v
}

func TestLookup(t *testing.T) {
	v := decode(t, `{"users":[{"streakData":{"currentStreak":{"length":12}}}]}`)
	got, ok := Lookup(v, P("users.0.streakData.currentStreak.length"))
	if !ok {
		t.Fatal("Lookup() not found")
	}
	if n, ok := AsInt(got); !ok || n != 12 {
		t.Errorf("AsInt(%v) = %d, %v; want 12, true", got, n, ok)
	}
	if _, ok := Lookup(v, P("users.1.streak")); ok {
		t.Error("Lookup() out of range index should not be found")
	}
	if _, ok := Lookup(v, P("users.x")); ok {
		t.Error("Lookup() non-numeric slice index should not be found")
	}
}

func TestFirstIntSkipsInvalid(t *testing.T) {
	v := decode(t, `{"streak": -5, "site_streak": 3.5, "streakLength": "1,204"}`)
	got, ok := FirstInt(v, StreakPaths)
	if !ok || got != 1204 {
		t.Errorf("FirstInt() = %d, %v; want 1204, true", got, ok)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"120,609", 120609, true},
		{"1 234", 1234, true},
		{"1.234", 1234, true},
		{"42", 42, true},
		{"-5", 0, false},
		{"", 0, false},
		{"12a", 0, false},
		{"99999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPartialSchemaTolerance(t *testing.T) {
	modern := decode(t, `{"users":[{"username":"ana","streak":321,"totalXp":120609,
		"courses":[{"title":"French","learningLanguage":"fr","xp":500,"crowns":12}]}]}`)
	legacy := decode(t, `{"username":"ana","site_streak":321,
		"language_data":{"fr":{"language_string":"French","points":500,"level":12}}}`)
	nested := decode(t, `{"streakData":{"currentStreak":{"length":321}},
		"learningLanguages":[{"languageName":"French","languageCode":"fr","experience":500,"level":12}]}`)

	var got []*profile.Partial
	for _, payload := range []any{modern, legacy, nested} {
		user, err := UserObject(payload)
		if err != nil {
			t.Fatalf("UserObject() error = %v", err)
		}
		got = append(got, Partial(user))
	}

	for i, p := range got {
		if p.StreakDays == nil || *p.StreakDays != 321 {
			t.Errorf("payload %d: StreakDays = %v, want 321", i, p.StreakDays)
		}
		want := []profile.Language{{Name: "French", Code: "fr", XP: profile.Int(500), Level: profile.Int(12)}}
		if diff := cmp.Diff(want, p.Languages); diff != "" {
			t.Errorf("payload %d: Languages mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestPartialAbsentStaysAbsent(t *testing.T) {
	user, err := UserObject(decode(t, `{"users":[{"streak":-5,"courses":[{"title":"German"}]}]}`))
	if err != nil {
		t.Fatalf("UserObject() error = %v", err)
	}
	p := Partial(user)
	if p.StreakDays != nil {
		t.Errorf("StreakDays = %d, want absent", *p.StreakDays)
	}
	if p.TotalXP != nil || p.Top3Count != nil {
		t.Errorf("TotalXP/Top3Count = %v/%v, want absent", p.TotalXP, p.Top3Count)
	}
	want := []profile.Language{{Name: "German", Code: "de"}}
	if diff := cmp.Diff(want, p.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialLeagueAndAchievements(t *testing.T) {
	user, err := UserObject(decode(t, `{"streak":4,"tier":2,"top3Count":7,
		"achievements":["Wildfire",{"title":"Sage"},{"name":""}]}`))
	if err != nil {
		t.Fatalf("UserObject() error = %v", err)
	}
	p := Partial(user)
	if p.League != "Gold" {
		t.Errorf("League = %q, want Gold", p.League)
	}
	if p.Top3Count == nil || *p.Top3Count != 7 {
		t.Errorf("Top3Count = %v, want 7", p.Top3Count)
	}
	want := []profile.Achievement{{Name: "Wildfire"}, {Name: "Sage"}}
	if diff := cmp.Diff(want, p.Achievements); diff != "" {
		t.Errorf("Achievements mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialSkipsLegacyNotLearning(t *testing.T) {
	user, err := UserObject(decode(t, `{"site_streak":1,"languages":[
		{"language_string":"Spanish","language":"es","points":10,"learning":true},
		{"language_string":"Dutch","language":"nl","points":0,"learning":false}]}`))
	if err != nil {
		t.Fatalf("UserObject() error = %v", err)
	}
	p := Partial(user)
	if len(p.Languages) != 1 || p.Languages[0].Code != "es" {
		t.Errorf("Languages = %+v, want only es", p.Languages)
	}
}

func TestUserObjectMissing(t *testing.T) {
	for _, s := range []string{`{"users":[]}`, `{"error":"nope"}`, `[]`, `"x"`} {
		if _, err := UserObject(decode(t, s)); !errors.Is(err, profile.ErrProfileNotFound) {
			t.Errorf("UserObject(%s) error = %v, want ErrProfileNotFound", s, err)
		}
	}
}

func TestFindStateUser(t *testing.T) {
	tree := decode(t, `{"props":{"pageProps":{"flags":{"streak":1},
		"user":{"username":"ana","streak":9,"courses":[{"title":"Italian","xp":40}]}}}}`)
	user, ok := FindStateUser(tree)
	if !ok {
		t.Fatal("FindStateUser() not found")
	}
	if user["username"] != "ana" {
		t.Errorf("FindStateUser() picked %v, want the ana user", user)
	}
	if _, ok := FindStateUser(decode(t, `{"a":{"streak":1}}`)); ok {
		t.Error("FindStateUser() matched an object without courses")
	}
}
