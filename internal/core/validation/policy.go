// Package validation holds the pluggable predicates applied to user-supplied
// passwords and archive file names before any external call is made.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultSpecials is the set of non-alphanumeric characters a password may
// contain. At least one of them is required.
const DefaultSpecials = "@.#$!%*?&"

// PasswordPolicy is a minimum-strength rule: a length window plus required
// character classes drawn from a fixed alphabet.
type PasswordPolicy struct {
	MinLength       int
	MaxLength       int
	RequireLower    bool
	RequireUpper    bool
	RequireDigit    bool
	RequireSpecial  bool
	AllowedSpecials string
}

// DefaultPasswordPolicy is 8 to 15 characters with at least one lowercase
// letter, uppercase letter, digit and special character.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:       8,
		MaxLength:       15,
		RequireLower:    true,
		RequireUpper:    true,
		RequireDigit:    true,
		RequireSpecial:  true,
		AllowedSpecials: DefaultSpecials,
	}
}

// Check returns nil when password satisfies the policy, or an error naming
// the first rule it breaks.
func (p PasswordPolicy) Check(password string) error {
	n := len([]rune(password))
	if p.MinLength > 0 && n < p.MinLength {
		return fmt.Errorf("password must be at least %d characters", p.MinLength)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return fmt.Errorf("password must be at most %d characters", p.MaxLength)
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return fmt.Errorf("password contains unsupported character %q", r)
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(p.AllowedSpecials, r):
			special = true
		default:
			return fmt.Errorf("password contains unsupported character %q", r)
		}
	}

	switch {
	case p.RequireLower && !lower:
		return fmt.Errorf("password must contain a lowercase letter")
	case p.RequireUpper && !upper:
		return fmt.Errorf("password must contain an uppercase letter")
	case p.RequireDigit && !digit:
		return fmt.Errorf("password must contain a digit")
	case p.RequireSpecial && !special:
		return fmt.Errorf("password must contain one of %s", p.AllowedSpecials)
	}
	return nil
}

// Valid is Check as a predicate.
func (p PasswordPolicy) Valid(password string) bool {
	return p.Check(password) == nil
}

var defaultFileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.\-]*$`)

// FileNamePolicy accepts archive names that are safe to use as a single S3
// key segment: no path separators, no reserved characters, no "..".
type FileNamePolicy struct {
	MaxLength int
	Pattern   *regexp.Regexp
}

// DefaultFileNamePolicy allows letters, digits, spaces, '_', '-' and '.',
// starting with a letter or digit, up to 128 characters.
func DefaultFileNamePolicy() FileNamePolicy {
	return FileNamePolicy{MaxLength: 128, Pattern: defaultFileName}
}

// Check returns nil when name is a safe archive file name.
func (p FileNamePolicy) Check(name string) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	if p.MaxLength > 0 && len(name) > p.MaxLength {
		return fmt.Errorf("file name must be at most %d characters", p.MaxLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name must not contain path separators")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("file name must not contain '..'")
	}
	pattern := p.Pattern
	if pattern == nil {
		pattern = defaultFileName
	}
	if !pattern.MatchString(name) {
		return fmt.Errorf("file name contains reserved characters")
	}
	return nil
}

// Valid is Check as a predicate.
func (p FileNamePolicy) Valid(name string) bool {
	return p.Check(name) == nil
}
