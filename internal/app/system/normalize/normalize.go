// Package normalize canonicalizes user-supplied identity fields before they
// are stored or compared.
package normalize

import (
	"strings"

	"github.com/zerlake/thesisai/internal/domain/models"
)

// Email trims and lowercases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses inner runs of whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role lowercases a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Plan lowercases a plan name. Empty means free.
func Plan(s string) string {
	p := strings.ToLower(strings.TrimSpace(s))
	if p == "" {
		return models.PlanFree
	}
	return p
}

// Status lowercases a status. Empty means active.
func Status(s string) string {
	st := strings.ToLower(strings.TrimSpace(s))
	if st == "" {
		return models.StatusActive
	}
	return st
}
