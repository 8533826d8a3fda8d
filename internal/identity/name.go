package identity

import (
	"regexp"

	"golang.org/x/text/cases"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_]{2,16}$`)

// NameKey folds name for case-insensitive map lookups.
func NameKey(name string) string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(name)
}

// SameName compares two names case-insensitively.
func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}

// ValidName reports whether name can exist on the remote identity service.
func ValidName(name string) bool {
	return validName.MatchString(name)
}
