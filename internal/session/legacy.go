package session

import "strings"

// LegacyAdmins is the email allow-list that granted admin before role rows
// existed. It is consulted only when the role store has no role for a user.
// TODO: remove once every LEGACY_ADMIN_EMAILS entry has a user_roles row.
type LegacyAdmins struct {
	emails map[string]struct{}
}

// NewLegacyAdmins builds the allow-list. Matching is case-insensitive.
func NewLegacyAdmins(emails []string) LegacyAdmins {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			set[email] = struct{}{}
		}
	}
	return LegacyAdmins{emails: set}
}

// Grants reports whether email is on the list.
func (l LegacyAdmins) Grants(email string) bool {
	if len(l.emails) == 0 {
		return false
	}
	_, ok := l.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
