package social

import "testing"

func TestSafeRedirect(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/dashboard", "/dashboard", true},
		{"/a/b?x=1", "/a/b?x=1", true},
		{"  /spaced  ", "/spaced", true},
		{"", "", false},
		{"dashboard", "", false},
		{"https://evil.example", "", false},
		{"//evil.example", "", false},
		{"/\\evil.example", "", false},
		{"javascript:alert(1)", "", false},
	}
	for _, c := range cases {
		got, ok := SafeRedirect(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("SafeRedirect(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
