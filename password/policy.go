package password

import (
	"strings"
	"unicode"
)

// HistoryDepth is the maximum number of prior hashes retained per credential.
const HistoryDepth = 5

// defaultCommonPasswords seeds the rejection list when the caller supplies
// none. Comparison is case-insensitive.
var defaultCommonPasswords = []string{
	"password", "password1", "password123", "passw0rd",
	"123456", "12345678", "123456789", "1234567890",
	"qwerty", "qwerty123", "letmein", "welcome", "welcome1",
	"admin", "admin123", "iloveyou", "monkey", "dragon",
	"sunshine", "princess", "football", "baseball", "abc123",
	"111111", "000000", "trustno1", "superman", "master",
}

// Policy is the password strength contract consumed by registration and
// change-password flows.
type Policy struct {
	MinLength  int
	MaxLength  int
	MinClasses int // distinct character classes required: lower, upper, digit, symbol

	common map[string]struct{}
}

// Result is a structured policy verdict. Rejections populate Errors and are
// never raised as Go errors.
type Result struct {
	IsValid bool
	Errors  []string
}

// NewPolicy builds a [Policy]. Zero-value fields fall back to minimum length
// 10, maximum 256, and 3 character classes. commonList extends the built-in
// common-password rejection list; pass nil to use the default list alone.
func NewPolicy(minLength, minClasses int, commonList []string) *Policy {
	if minLength <= 0 {
		minLength = 10
	}
	if minClasses <= 0 {
		minClasses = 3
	}

	common := make(map[string]struct{}, len(defaultCommonPasswords)+len(commonList))
	for _, p := range defaultCommonPasswords {
		common[p] = struct{}{}
	}
	for _, p := range commonList {
		common[strings.ToLower(p)] = struct{}{}
	}

	return &Policy{
		MinLength:  minLength,
		MaxLength:  256,
		MinClasses: minClasses,
		common:     common,
	}
}

// Validate checks candidate against the policy and returns every violation
// at once so callers can surface a complete error list.
func (p *Policy) Validate(candidate string) Result {
	var errs []string

	if len(candidate) < p.MinLength {
		errs = append(errs, "password too short")
	}
	if p.MaxLength > 0 && len(candidate) > p.MaxLength {
		errs = append(errs, "password too long")
	}
	if classes := characterClasses(candidate); classes < p.MinClasses {
		errs = append(errs, "password needs more character variety")
	}
	if _, found := p.common[strings.ToLower(candidate)]; found {
		errs = append(errs, "password is too common")
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func characterClasses(s string) int {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	n := 0
	for _, set := range []bool{lower, upper, digit, symbol} {
		if set {
			n++
		}
	}
	return n
}

// CheckHistory reports whether candidate matches any retained prior hash.
// Unparseable history entries are skipped rather than failing the check: a
// corrupt old hash must not lock the user out of rotating their password.
func CheckHistory(candidate string, history []string, hasher *Argon2) bool {
	for _, old := range history {
		match, err := hasher.Verify(candidate, old)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// PushHistory appends newHash and trims the oldest entries so the result
// holds at most [HistoryDepth] hashes, FIFO.
func PushHistory(history []string, newHash string) []string {
	history = append(history, newHash)
	if overflow := len(history) - HistoryDepth; overflow > 0 {
		history = history[overflow:]
	}
	return history
}
