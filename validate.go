package conout

import (
	"math"
	"strings"
)

const minPasswordLength = 8

// validateRegistration checks the registration step inputs: all fields
// present, institutional email, matching confirmation, minimum length.
// Rules are applied in display order so the first error the user sees
// corresponds to the first offending field.
func validateRegistration(email, password, confirmPassword string) *ValidationError {
	if strings.TrimSpace(email) == "" {
		return newValidationError("email", ErrEmptyField)
	}
	if password == "" {
		return newValidationError("password", ErrEmptyField)
	}
	if confirmPassword == "" {
		return newValidationError("confirmPassword", ErrEmptyField)
	}
	if !isInstitutionalEmail(email) {
		return newValidationError("email", ErrInvalidEmailDomain)
	}
	if password != confirmPassword {
		return newValidationError("confirmPassword", ErrPasswordMismatch)
	}
	if len(password) < minPasswordLength {
		return newValidationError("password", ErrPasswordTooShort)
	}
	return nil
}

// validateCode checks that the verification code is exactly six ASCII digits.
func validateCode(code string) *ValidationError {
	if code == "" {
		return newValidationError("code", ErrEmptyField)
	}
	if len(code) != 6 || !isNumericString(code) {
		return newValidationError("code", ErrInvalidCodeFormat)
	}
	return nil
}

// validatePreferences checks a fully defaulted selection payload. The caller
// applies defaults first; only the location has no default.
func validatePreferences(prefs Preferences) *ValidationError {
	if strings.TrimSpace(prefs.PreferredLocation) == "" {
		return newValidationError("preferredLocation", ErrMissingLocation)
	}
	if !prefs.Occasion.Valid() {
		return newValidationError("occasion", ErrInvalidOccasion)
	}
	if !isValidBudget(prefs.Budget) {
		return newValidationError("budget", ErrInvalidBudget)
	}
	return nil
}

// isInstitutionalEmail reports whether the address matches the institutional
// domain pattern: a local part, an at sign, and a host ending in ".edu".
// The service performs its own authoritative check; this rule only keeps
// obviously wrong input from ever reaching it.
func isInstitutionalEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	host := email[at+1:]
	if !strings.HasSuffix(host, ".edu") {
		return false
	}
	// Reject a bare ".edu" host and embedded whitespace.
	if len(host) <= len(".edu") || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	return true
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isValidBudget(budget float64) bool {
	if budget < MinBudget || budget > MaxBudget {
		return false
	}
	return math.Mod(budget, BudgetStep) == 0
}
