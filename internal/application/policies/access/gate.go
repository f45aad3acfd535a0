package access

import (
	"strings"

	"armory-backend/internal/constants"
	"armory-backend/internal/ledger"
)

// Principal is the already-authenticated caller. AssignedBase is empty for admins.
type Principal struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	AssignedBase string `json:"assigned_base"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == constants.Admin
}

// ScopeBase returns the base a listing query must be restricted to, or "" for
// unrestricted (admin) callers.
func (p Principal) ScopeBase() string {
	if p.IsAdmin() {
		return ""
	}
	return p.AssignedBase
}

// CanAccess decides whether p may perform permission against relevantBase.
// Admin is unrestricted; every other role must be allowed the permission and be
// assigned to relevantBase.
func CanAccess(p Principal, permission, relevantBase string) bool {
	if !constants.AllowedRole(permission, p.Role) {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	base := strings.TrimSpace(p.AssignedBase)
	return base != "" && base == strings.TrimSpace(relevantBase)
}

// CanAccessAny allows the permission when any of the bases passes CanAccess.
func CanAccessAny(p Principal, permission string, bases ...string) bool {
	for _, b := range bases {
		if CanAccess(p, permission, b) {
			return true
		}
	}
	return false
}

// Authorize is CanAccess returning ledger.ErrForbidden on denial.
func Authorize(p Principal, permission, relevantBase string) error {
	if !CanAccess(p, permission, relevantBase) {
		return ledger.ErrForbidden
	}
	return nil
}

// AuthorizeAny is CanAccessAny returning ledger.ErrForbidden on denial.
func AuthorizeAny(p Principal, permission string, bases ...string) error {
	if !CanAccessAny(p, permission, bases...) {
		return ledger.ErrForbidden
	}
	return nil
}

// ListScope resolves the base filter for a listing query. Admins get the
// requested base (possibly "" for all); other roles are pinned to their own base
// and denied when they ask for another one.
func ListScope(p Principal, permission, requested string) (string, error) {
	if !constants.AllowedRole(permission, p.Role) {
		return "", ledger.ErrForbidden
	}
	if p.IsAdmin() {
		return strings.TrimSpace(requested), nil
	}
	base := strings.TrimSpace(p.AssignedBase)
	if base == "" {
		return "", ledger.ErrForbidden
	}
	if requested = strings.TrimSpace(requested); requested != "" && requested != base {
		return "", ledger.ErrForbidden
	}
	return base, nil
}
