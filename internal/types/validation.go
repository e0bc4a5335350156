package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ProfileValidationConfig contains configuration for profile name validation.
type ProfileValidationConfig struct {
	ReservedPatterns []string
	MaxNameLength    int
	AllowWhitespace  bool
}

// DefaultProfileValidationConfig returns a ProfileValidationConfig with
// default values.
func DefaultProfileValidationConfig() ProfileValidationConfig {
	return ProfileValidationConfig{
		MaxNameLength:    128,
		AllowWhitespace:  false,
		ReservedPatterns: nil,
	}
}

// ProfileValidator validates profile names according to configured rules.
// Profile names become snapshot store key suffixes and metric tag values,
// so the rules are tighter than for free-form identifiers.
type ProfileValidator struct {
	config ProfileValidationConfig
}

// NewProfileValidator creates a new ProfileValidator with the given
// configuration.
func NewProfileValidator(config ProfileValidationConfig) *ProfileValidator {
	return &ProfileValidator{config: config}
}

// Validate checks if a profile name is valid according to the configured rules.
func (v *ProfileValidator) Validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProfile)
	}

	if v.config.MaxNameLength > 0 && len(name) > v.config.MaxNameLength {
		return fmt.Errorf("%w: name length %d exceeds maximum %d bytes",
			ErrInvalidProfile, len(name), v.config.MaxNameLength)
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name contains invalid UTF-8", ErrInvalidProfile)
	}

	for i, r := range name {
		// Control characters (ASCII 0-31 and 127)
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: name contains control character at position %d", ErrInvalidProfile, i)
		}

		if !v.config.AllowWhitespace && unicode.IsSpace(r) {
			return fmt.Errorf("%w: name contains whitespace at position %d", ErrInvalidProfile, i)
		}
	}

	for _, pattern := range v.config.ReservedPatterns {
		if strings.Contains(name, pattern) {
			return fmt.Errorf("%w: name contains reserved pattern %q", ErrInvalidProfile, pattern)
		}
	}

	return nil
}

// ValidateProfile validates a name using the default validator.
func ValidateProfile(name string) error {
	return DefaultProfileValidator.Validate(name)
}

// DefaultProfileValidator is the default profile validator instance.
var DefaultProfileValidator = NewProfileValidator(DefaultProfileValidationConfig())

// IsInvalidProfile returns true if the error indicates an invalid profile name.
func IsInvalidProfile(err error) bool {
	return errors.Is(err, ErrInvalidProfile)
}
