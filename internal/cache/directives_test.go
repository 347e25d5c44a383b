package cache

import "testing"

func TestParseDirectives_Basic(t *testing.T) {
	d := ParseDirectives("max-age=60, public")
	if !d.HasMaxAge || d.MaxAge != 60 {
		t.Fatalf("max-age: got %+v", d)
	}
	if !d.IsPublic {
		t.Fatalf("public: got %+v", d)
	}
}

func TestParseDirectives_Flags(t *testing.T) {
	d := ParseDirectives("no-cache, no-store, must-revalidate, proxy-revalidate, private")
	if !d.NoCache || !d.NoStore || !d.MustRevalidate || !d.ProxyRevalidate || !d.IsPrivate {
		t.Fatalf("flags: got %+v", d)
	}
}

func TestParseDirectives_SMaxAgeWins(t *testing.T) {
	d := ParseDirectives("max-age=10, s-maxage=30")
	lt, ok := d.EffectiveLifetime()
	if !ok || lt != 30 {
		t.Fatalf("effective lifetime: got %d, %v", lt, ok)
	}
}

func TestParseDirectives_MaxAgeFallback(t *testing.T) {
	d := ParseDirectives("max-age=10")
	lt, ok := d.EffectiveLifetime()
	if !ok || lt != 10 {
		t.Fatalf("effective lifetime: got %d, %v", lt, ok)
	}
}

func TestParseDirectives_NoLifetime(t *testing.T) {
	d := ParseDirectives("no-cache")
	if _, ok := d.EffectiveLifetime(); ok {
		t.Fatalf("expected no heuristic freshness")
	}
}

func TestParseDirectives_MalformedMaxAgeRejected(t *testing.T) {
	d := ParseDirectives("max-age=notanumber")
	if d.HasMaxAge {
		t.Fatalf("malformed max-age should not parse")
	}
	d2 := ParseDirectives("max-age=-5")
	if d2.HasMaxAge {
		t.Fatalf("negative max-age should not parse")
	}
}

func TestParseDirectives_SubstringIsNotAFalseMatch(t *testing.T) {
	// "privateish" must not trip the private flag by substring containment
	// (spec.md §9 calls out exactly this failure mode).
	d := ParseDirectives("privateish=1")
	if d.IsPrivate {
		t.Fatalf("token 'privateish' should not set IsPrivate")
	}
}

func TestParseDirectives_CaseInsensitive(t *testing.T) {
	d := ParseDirectives("NO-STORE, MAX-AGE=5")
	if !d.NoStore || !d.HasMaxAge || d.MaxAge != 5 {
		t.Fatalf("case-insensitive parse failed: %+v", d)
	}
}

func TestInsertable(t *testing.T) {
	cases := []struct {
		name string
		cc   string
		want bool
	}{
		{"public max-age", "public, max-age=60", true},
		{"max-age only", "max-age=60", true},
		{"s-maxage only", "s-maxage=60", true},
		{"no-store blocks", "no-store, max-age=60", false},
		{"private blocks", "private, max-age=60", false},
		{"no lifetime or public", "no-cache", false},
		{"empty", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ParseDirectives(c.cc).Insertable(); got != c.want {
				t.Errorf("Insertable(%q) = %v, want %v", c.cc, got, c.want)
			}
		})
	}
}
