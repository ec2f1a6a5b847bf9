package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mastery-tracker/internal/constants"
)

// ValidationError marks malformed client input. It maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var regionPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// NormalizeRegion lower-cases a platform code and falls back to the default region.
func NormalizeRegion(region string) (string, error) {
	r := strings.ToLower(strings.TrimSpace(region))
	if r == "" {
		return constants.DefaultRegion, nil
	}
	if !regionPattern.MatchString(r) {
		return r, NewValidationError("region", "invalid region %q", region)
	}
	return r, nil
}

// SplitRiotID splits GameName#Tag at the last '#'.
func SplitRiotID(full string) (gameName, tagLine string, err error) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, "#")
	if i < 0 {
		return "", "", NewValidationError("name", "format: NAME#TAG expected, got %q", full)
	}
	gameName, tagLine = strings.TrimSpace(full[:i]), strings.TrimSpace(full[i+1:])
	if gameName == "" || tagLine == "" {
		return "", "", NewValidationError("name", "format: NAME#TAG expected, got %q", full)
	}
	return gameName, tagLine, nil
}

func ValidateAccounts(accounts []AccountRef) error {
	if len(accounts) == 0 {
		return NewValidationError("accounts", "missing or empty")
	}
	return nil
}

func (r ChampionMasteryRequest) Validate() error {
	if r.ChampionID <= 0 {
		return NewValidationError("championId", "missing")
	}
	return ValidateAccounts(r.Accounts)
}
