package lookup

import "testing"

func TestIsDisposableDomain(t *testing.T) {
	cases := []struct {
		domain string
		want   bool
	}{
		{"mailinator.com", true},
		{"yopmail.com", true},
		{"temp-mail.org", true},
		{"MAILINATOR.COM", true}, // lookups fold case
		{"gmail.com", false},
		{"example.com", false},
		{"sub.mailinator.com", false}, // exact match only, no suffix walk
		{"", false},
	}

	for _, tc := range cases {
		if got := IsDisposableDomain(tc.domain); got != tc.want {
			t.Errorf("IsDisposableDomain(%q) = %v, want %v", tc.domain, got, tc.want)
		}
	}
}
