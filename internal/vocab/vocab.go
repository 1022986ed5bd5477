// Package vocab holds the extensible value sets used to tag activity records.
//
// The core only ever stores and filters on the underlying string, so a host
// application can supply its own Vocabulary without touching storage code.
package vocab

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Vocabulary exposes a closed set of allowed string values.
type Vocabulary interface {
	Values() []string
}

// List is a static Vocabulary backed by a slice.
type List []string

// Values returns a copy of the list.
func (l List) Values() []string {
	return append([]string(nil), l...)
}

// Contains reports whether value is part of v. Comparison is case-insensitive.
func Contains(v Vocabulary, value string) bool {
	if v == nil {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range v.Values() {
		if strings.ToLower(candidate) == needle {
			return true
		}
	}
	return false
}

// Merge combines vocabularies into one sorted, de-duplicated list.
func Merge(sets ...Vocabulary) List {
	seen := make(map[string]struct{})
	merged := List{}
	for _, set := range sets {
		if set == nil {
			continue
		}
		for _, value := range set.Values() {
			normalized := strings.ToLower(strings.TrimSpace(value))
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			merged = append(merged, normalized)
		}
	}
	sort.Strings(merged)
	return merged
}

var (
	// Roles are the default actor roles.
	Roles = List{"admin", "customer", "support", "manager", "partner", "system", "ai", "integration", "cron", "guest"}
	// Types are the activity categories. This set is fixed.
	Types = List{"view", "create", "update", "delete", "system"}
	// Modules are the default application areas.
	Modules = List{"product", "order", "auth", "settings", "wallet"}
	// Actions are the default enumerated action codes.
	Actions = List{"view_product", "create_product", "update_product", "delete_product", "update_info", "create_info", "delete_info"}
)

// Set groups the vocabularies a deployment accepts.
type Set struct {
	Roles   Vocabulary
	Types   Vocabulary
	Modules Vocabulary
}

// DefaultSet returns the built-in vocabularies.
func DefaultSet() Set {
	return Set{Roles: Roles, Types: Types, Modules: Modules}
}

// RegisterValidations installs the activity_role, activity_type and
// activity_module tags on v. Empty strings pass so they compose with omitempty.
func RegisterValidations(v *validator.Validate, set Set) error {
	tags := map[string]Vocabulary{
		"activity_role":   set.Roles,
		"activity_type":   set.Types,
		"activity_module": set.Modules,
	}
	for tag, vocabulary := range tags {
		if vocabulary == nil {
			return fmt.Errorf("vocabulary for %s is not configured", tag)
		}
		vocabulary := vocabulary
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			if value == "" {
				return true
			}
			return Contains(vocabulary, value)
		}); err != nil {
			return fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return nil
}
