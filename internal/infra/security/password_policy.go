package security

import (
	"fmt"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

const (
	defaultMinPasswordLength = 8
	defaultMinZxcvbnScore    = 2
)

// PasswordPolicy rejects short or guessable passwords at sign-up.
type PasswordPolicy struct {
	MinLength int
	MinScore  int
}

// DefaultPasswordPolicy returns the sign-up policy for local accounts.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: defaultMinPasswordLength, MinScore: defaultMinZxcvbnScore}
}

// Validate checks password. userInputs (email, display name) count against strength.
func (p PasswordPolicy) Validate(password string, userInputs ...string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return &domain.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters long", p.MinLength),
		}
	}

	minScore := p.MinScore
	if minScore > 4 {
		minScore = 4
	}
	if minScore <= 0 {
		return nil
	}
	if result := zxcvbn.PasswordStrength(password, userInputs); result.Score < minScore {
		return &domain.ValidationError{
			Field:   "password",
			Message: "password is too weak; choose a more complex value",
		}
	}
	return nil
}
