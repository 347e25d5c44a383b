package registry

import "testing"

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Example.com", "example.com"},
		{"  Example.com  ", "example.com"},
		{"example.com:8080", "example.com"},
		{"", EmptyHost},
		{"   ", EmptyHost},
		{"[::1]:8080", "[::1]"},
		{"[::1]", "[::1]"},
		{"API.Example.COM:443", "api.example.com"},
	}
	for _, c := range cases {
		if got := NormalizeHost(c.in); got != c.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
