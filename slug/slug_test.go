package slug

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Hello World":              "hello-world",
		"  Héllo,  Wörld!  ":       "hello-world",
		"Go -- is --- fun":         "go-is-fun",
		"snake_case stays":         "snake_case-stays",
		"---trim---":               "trim",
		"C'est déjà l'été":         "cest-deja-lete",
		"100% pure & simple, 2024": "100-pure-simple-2024",
		"!!!":                      "",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 150, "..."); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	long := strings.Repeat("é", 200)
	got := Truncate(long, 150, "...")
	if utf8.RuneCountInString(got) != 150 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestExcerpt(t *testing.T) {
	content := strings.Repeat("word ", 60)
	got := Excerpt(content)
	if utf8.RuneCountInString(got) > 150 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected excerpt %q", got)
	}
}
