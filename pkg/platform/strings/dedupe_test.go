package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func identity(s string) string { return s }

func TestDedupeAndTrimBy(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		key      func(string) string
		expected []string
	}{
		{"nil slice", nil, identity, nil},
		{"empty slice", []string{}, identity, []string{}},
		{"trims and drops blanks", []string{"  foo ", "", "   ", "bar"}, identity, []string{"foo", "bar"}},
		{"exact duplicates", []string{"foo", "bar", "foo"}, identity, []string{"foo", "bar"}},
		{"case kept without folding", []string{"Notch", "notch"}, identity, []string{"Notch", "notch"}},
		{"first spelling wins when folded", []string{" Notch", "NOTCH ", "jeb_"}, strings.ToLower, []string{"Notch", "jeb_"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimBy(tt.input, tt.key))
		})
	}
}
