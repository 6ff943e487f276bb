package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// RegistrationPasswordValidator returns the validator enforcing the account
// registration policy: length in [8,30], at least one uppercase, lowercase,
// digit, and symbol, and no whitespace.
func RegistrationPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(registrationRules()...)
}

// StrictRegistrationPasswordValidator appends a zxcvbn strength rule to the
// registration policy. A minScore of zero or less disables the extra rule,
// keeping the composition-only default.
func StrictRegistrationPasswordValidator(minScore int) *PasswordValidator {
	rules := registrationRules()
	if minScore > 0 {
		rules = append(rules, RequirePasswordStrengthRule(minScore))
	}
	return NewPasswordValidator(rules...)
}

func registrationRules() []PasswordRule {
	return []PasswordRule{
		LengthRangeRule(8, 30),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
		NoWhitespaceRule(),
	}
}

// LengthRangeRule ensures the password length falls within [min, max] runes.
func LengthRangeRule(min, max int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		length := len([]rune(password))
		if length < min || length > max {
			return &PasswordValidationError{
				Code:    "length",
				Message: fmt.Sprintf("password must be between %d and %d characters long", min, max),
			}
		}
		return nil
	})
}

// RequireUppercaseRule ensures the password contains at least one uppercase letter.
func RequireUppercaseRule() PasswordRule {
	return requireClassRule("uppercase", "password must include at least one uppercase letter", unicode.IsUpper)
}

// RequireLowercaseRule ensures the password contains at least one lowercase letter.
func RequireLowercaseRule() PasswordRule {
	return requireClassRule("lowercase", "password must include at least one lowercase letter", unicode.IsLower)
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return requireClassRule("digit", "password must include at least one digit", unicode.IsDigit)
}

// RequireSymbolRule ensures the password contains at least one symbol (punctuation/mark).
func RequireSymbolRule() PasswordRule {
	return requireClassRule("symbol", "password must include at least one symbol", func(r rune) bool {
		return unicode.IsSymbol(r) || unicode.IsPunct(r)
	})
}

// NoWhitespaceRule rejects passwords containing any whitespace rune.
func NoWhitespaceRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsSpace(r) {
				return &PasswordValidationError{
					Code:    "whitespace",
					Message: "password must not contain whitespace",
				}
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score on top of the
// composition policy. Enabled through auth.password_min_strength; a minScore
// of zero or less turns the rule into a no-op.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}

func requireClassRule(code, message string, match func(rune) bool) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if match(r) {
				return nil
			}
		}
		return &PasswordValidationError{Code: code, Message: message}
	})
}
