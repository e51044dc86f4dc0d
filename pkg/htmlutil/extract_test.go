package htmlutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripTags(t *testing.T) {
	in := `<html><head><style>.a{}</style><script>var x = "<b>";</script></head>
<body><h1>ana</h1><p>321&nbsp;day streak</p></body></html>`
	if got, want := StripTags(in), "ana 321 day streak"; got != want {
		t.Errorf("StripTags() = %q, want %q", got, want)
	}
}

func TestTitle(t *testing.T) {
	if got := Title(`<title>ana on Duolingo</title>`); got != "ana on Duolingo" {
		t.Errorf("Title() = %q", got)
	}
	if got := Title(`<meta property="og:title" content="ana &amp; co">`); got != "ana & co" {
		t.Errorf("Title() og = %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Oops! Page not found", true},
		{"Página no encontrada", true},
		{"321 day streak", false},
	}
	for _, tt := range tests {
		if got := IsNotFound(tt.text); got != tt.want {
			t.Errorf("IsNotFound(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsLoginWall(t *testing.T) {
	if !IsLoginWall("Please log in to continue") {
		t.Error("IsLoginWall() = false, want true")
	}
	if IsLoginWall("321 day streak") {
		t.Error("IsLoginWall() = true, want false")
	}
}

func TestStateBlobs(t *testing.T) {
	page := `<html><head>
<script id="__NEXT_DATA__" type="application/json">{"props":{"streak":1}}</script>
<script type="application/ld+json">{"@type":"Person"}</script>
<script type="application/json" data-x>{&quot;a&quot;:1}</script>
</head><body>
<script>window.__INITIAL_STATE__ = {user: {streak: 5, note: "a } brace"}, list: [1, 2]};</script>
<script>window.duo.profile={'streak': 3}</script>
</body></html>`
	want := []string{
		`{"props":{"streak":1}}`,
		`{"@type":"Person"}`,
		`{"a":1}`,
		`{user: {streak: 5, note: "a } brace"}, list: [1, 2]}`,
		`{'streak': 3}`,
	}
	if diff := cmp.Diff(want, StateBlobs(page)); diff != "" {
		t.Errorf("StateBlobs() mismatch (-want +got):\n%s", diff)
	}
}

func TestStateBlobsNone(t *testing.T) {
	if got := StateBlobs(`<html><body><script>console.log(1)</script></body></html>`); len(got) != 0 {
		t.Errorf("StateBlobs() = %v, want none", got)
	}
}

func TestBalancedObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`  {"a":[1,{"b":"}"}]} trailing`, `{"a":[1,{"b":"}"}]}`},
		{`[1,[2]];`, `[1,[2]]`},
		{`{"a":"\"}"}x`, `{"a":"\"}"}`},
		{`{"unterminated":1`, ``},
		{`null`, ``},
	}
	for _, tt := range tests {
		if got := BalancedObject(tt.in); got != tt.want {
			t.Errorf("BalancedObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
