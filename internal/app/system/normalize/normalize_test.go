package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Maria Santos", "Maria Santos"},
		{"  Maria   Santos ", "Maria Santos"},
		{"UPPER case", "UPPER case"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlanAndStatusDefaults(t *testing.T) {
	if got := Plan(""); got != "free" {
		t.Errorf("Plan(\"\") = %q, want free", got)
	}
	if got := Plan(" PRO "); got != "pro" {
		t.Errorf("Plan(PRO) = %q, want pro", got)
	}
	if got := Status(""); got != "active" {
		t.Errorf("Status(\"\") = %q, want active", got)
	}
	if got := Role("Advisor"); got != "advisor" {
		t.Errorf("Role(Advisor) = %q, want advisor", got)
	}
}
