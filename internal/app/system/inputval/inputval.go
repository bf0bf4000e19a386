// Package inputval holds the small validation helpers shared by the JSON handlers.
package inputval

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// IsValidEmail reports whether s is a bare addr-spec (no display name) with a
// well-formed local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return dotAtomOK(s[:at]) && dotAtomOK(s[at+1:])
}

func dotAtomOK(part string) bool {
	return part != "" &&
		!strings.HasPrefix(part, ".") &&
		!strings.HasSuffix(part, ".") &&
		!strings.Contains(part, "..")
}

// LenBetween reports whether the trimmed rune length of s is within [min, max].
func LenBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= min && n <= max
}

// Errors collects field-level validation failures. The zero value is ready to use.
type Errors map[string]string

// Add records msg for field unless the field already has a message.
func (e *Errors) Add(field, msg string) {
	if *e == nil {
		*e = Errors{}
	}
	if _, ok := (*e)[field]; !ok {
		(*e)[field] = msg
	}
}

// Check adds msg for field when ok is false.
func (e *Errors) Check(ok bool, field, msg string) {
	if !ok {
		e.Add(field, msg)
	}
}

// Length adds a standard message when value's length is outside [min, max].
func (e *Errors) Length(field, value string, min, max int) {
	if LenBetween(value, min, max) {
		return
	}
	if min > 0 && strings.TrimSpace(value) == "" {
		e.Add(field, "is required")
		return
	}
	e.Add(field, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max)+" characters")
}

// Any reports whether any failure was recorded.
func (e Errors) Any() bool { return len(e) > 0 }

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon(error|load|click|mouseover)\s*=`),
	regexp.MustCompile(`(?i)('|")\s*(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i);\s*(drop|delete|truncate|alter)\s+table\b`),
	regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
	regexp.MustCompile(`\$(where|ne|gt|regex|expr)\b`),
}

// LooksLikeInjection reports whether s matches a known script, SQL, or Mongo
// operator injection pattern. Callers still sanitize; this only drives the
// security audit trail.
func LooksLikeInjection(s string) bool {
	for _, re := range injectionPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
