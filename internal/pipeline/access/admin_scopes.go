package access

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AdminScope is the brand set granted to platform staff.
type AdminScope struct {
	All    bool     `yaml:"all"`
	Brands []string `yaml:"brands"`
}

// AdminScopes maps administrators (by user ID or email) to their brand set.
// Administrators without an entry get Default.
type AdminScopes struct {
	Default AdminScope            `yaml:"default"`
	Admins  map[string]AdminScope `yaml:"admins"`
}

// LoadAdminScopes reads an AdminScopes YAML file. An empty path yields
// scopes that grant nothing.
func LoadAdminScopes(path string) (AdminScopes, error) {
	if strings.TrimSpace(path) == "" {
		return AdminScopes{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return AdminScopes{}, fmt.Errorf("read admin scopes: %w", err)
	}
	return ParseAdminScopes(raw)
}

// ParseAdminScopes decodes the YAML document. Keys are matched case-insensitively.
func ParseAdminScopes(raw []byte) (AdminScopes, error) {
	var scopes AdminScopes
	if err := yaml.Unmarshal(raw, &scopes); err != nil {
		return AdminScopes{}, fmt.Errorf("parse admin scopes: %w", err)
	}

	normalized := make(map[string]AdminScope, len(scopes.Admins))
	for key, scope := range scopes.Admins {
		normalized[strings.ToLower(strings.TrimSpace(key))] = scope
	}
	scopes.Admins = normalized
	return scopes, nil
}

// For returns the scope of the administrator identified by userID or email.
func (a AdminScopes) For(userID, email string) Scope {
	for _, key := range []string{userID, email} {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if scope, ok := a.Admins[key]; ok {
			return scope.toScope()
		}
	}
	return a.Default.toScope()
}

func (s AdminScope) toScope() Scope {
	if s.All {
		return AllBrands()
	}
	return Brands(s.Brands...)
}
