package cache

import "testing"

func TestMatchGlob(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		key     string
		want    bool
	}{
		{"glob prefix match", "session:*", "session:123", true},
		{"glob prefix no match", "session:*", "other:123", false},
		{"glob single char", "a?c", "abc", true},
		{"regex anchor match", "^session:\\d+$", "session:123", true},
		{"regex anchor no match", "^session:\\d+$", "session:abc", false},
		{"regex alternation", "a|b", "a", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := matchGlob(c.pattern, c.key)
			if err != nil {
				t.Fatalf("matchGlob error: %v", err)
			}
			if got != c.want {
				t.Errorf("matchGlob(%q, %q) = %v, want %v", c.pattern, c.key, got, c.want)
			}
		})
	}
}

func TestLooksLikeRegex(t *testing.T) {
	if looksLikeRegex("session:*") {
		t.Error("plain glob should not look like regex")
	}
	if !looksLikeRegex("^session:.*$") {
		t.Error("anchored pattern should look like regex")
	}
}
