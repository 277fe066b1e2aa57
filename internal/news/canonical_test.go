package news

import "testing"

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"strips utm params",
			"https://example.com/story?utm_source=twitter&utm_medium=social",
			"https://example.com/story",
		},
		{
			"strips gclid and fragment",
			"https://Example.COM/story?gclid=abc123#section-2",
			"https://example.com/story",
		},
		{
			"keeps meaningful params",
			"https://example.com/story?id=42&utm_campaign=x",
			"https://example.com/story?id=42",
		},
		{
			"lowercases scheme and host only",
			"HTTPS://News.Example.com/Story/Path",
			"https://news.example.com/Story/Path",
		},
		{
			"unparseable input passes through trimmed",
			"  not a url  ",
			"not a url",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanonicalURL(c.in); got != c.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestCanonicalURL_SameStoryDifferentChannels(t *testing.T) {
	a := CanonicalURL("https://example.com/story?utm_source=newsletter")
	b := CanonicalURL("https://example.com/story?utm_source=push&fbclid=xyz")
	c := CanonicalURL("https://example.com/story")
	if a != c || b != c {
		t.Fatalf("expected one identity, got %q / %q / %q", a, b, c)
	}
	if CanonicalURL(c) != c {
		t.Fatalf("canonicalization is not idempotent: %q", c)
	}
}

func TestMacroMatch(t *testing.T) {
	kw, ok := MacroMatch("EU agrees new sanctions package against imports")
	if !ok || kw != "sanction" {
		t.Fatalf("got %q/%v, want sanction/true", kw, ok)
	}
	if _, ok := MacroMatch("Quarterly smartphone shipments dip slightly"); ok {
		t.Fatalf("unexpected macro match")
	}
}

func TestPrefilterScore(t *testing.T) {
	weak := Item{Headline: "Markets open"}
	strong := Item{
		Headline: "Chipmaker agrees to merger after earnings beat and raised guidance",
		Body:     string(make([]byte, 300)),
	}
	if s := PrefilterScore(weak); s >= PrefilterScore(strong) {
		t.Fatalf("weak item (%d) should score below strong item (%d)", s, PrefilterScore(strong))
	}
	if s := PrefilterScore(strong); s > 100 {
		t.Fatalf("score %d exceeds cap", s)
	}
}
