package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		// Valid emails
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"user123@example.co.uk", true},
		{"a@b.co", true},
		{"user@localhost", true},   // RFC 5322 allows single-label domains
		{"admin@mailserver", true}, // useful for dev/test environments

		// Invalid emails - empty/whitespace
		{"", false},
		{"   ", false},

		// Invalid emails - missing parts
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		// Invalid emails - bad format (previously allowed by weak regex)
		{".user@example.com", false},      // leading dot in local
		{"user.@example.com", false},      // trailing dot in local
		{"user..name@example.com", false}, // consecutive dots
		{"user@.example.com", false},      // leading dot in domain
		{"user@example..com", false},      // consecutive dots in domain

		// Invalid emails - display name format (should be rejected)
		{"User Name <user@example.com>", false},

		// Invalid emails - other malformed
		{"user @example.com", false}, // space in local
		{"user@ example.com", false}, // space after @
		{"user@exam ple.com", false}, // space in domain
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestLenBetween(t *testing.T) {
	tests := []struct {
		in       string
		min, max int
		want     bool
	}{
		{"", 1, 10, false},
		{"   ", 1, 10, false},
		{"abc", 1, 3, true},
		{"abcd", 1, 3, false},
		{"  ñandú  ", 1, 5, true},
	}
	for _, tt := range tests {
		if got := LenBetween(tt.in, tt.min, tt.max); got != tt.want {
			t.Errorf("LenBetween(%q, %d, %d) = %v, want %v", tt.in, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestErrors(t *testing.T) {
	var errs Errors
	if errs.Any() {
		t.Fatal("zero Errors should report no failures")
	}

	errs.Length("title", "", 1, 255)
	errs.Length("title", "x", 5, 10)
	errs.Check(false, "cards", "must contain at least one card")

	if got := errs["title"]; got != "is required" {
		t.Errorf("title: got %q, want %q", got, "is required")
	}
	if got := errs["cards"]; got != "must contain at least one card" {
		t.Errorf("cards: got %q", got)
	}
	if !errs.Any() {
		t.Error("expected failures")
	}
}

func TestLengthMessage(t *testing.T) {
	var errs Errors
	errs.Length("name", "toolong", 1, 3)
	if got, want := errs["name"], "must be between 1 and 3 characters"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLooksLikeInjection(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Chapter 2: Review of Related Literature", false},
		{"What is the effect of sleep on grades?", false},
		{"<script>alert(1)</script>", true},
		{"<img src=x onerror=alert(1)>", true},
		{"' OR 1=1 --", true},
		{"x'; DROP TABLE profiles; --", true},
		{"1 UNION SELECT password FROM users", true},
		{`{"$where": "sleep(100)"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := LooksLikeInjection(tt.in); got != tt.want {
				t.Errorf("LooksLikeInjection(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
