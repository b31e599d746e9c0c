package credential

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	uppercasePattern = regexp.MustCompile(`[A-Z]`)
	lowercasePattern = regexp.MustCompile(`[a-z]`)
	digitPattern     = regexp.MustCompile(`[0-9]`)
	specialPattern   = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// PasswordPolicy defines the requirements for password complexity
type PasswordPolicy struct {
	MinLength          int // in characters
	MaxLength          int // in bytes, capped at MaxPasswordBytes; 0 means MaxPasswordBytes
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
	DisallowCommonPwds bool
	MaxRepeatedChars   int
}

// PasswordPolicyChecker defines the interface for checking password complexity
type PasswordPolicyChecker interface {
	CheckPasswordComplexity(password string) error
}

// DefaultPasswordPolicyChecker implements the PasswordPolicyChecker interface
type DefaultPasswordPolicyChecker struct {
	policy          *PasswordPolicy
	commonPasswords map[string]bool
}

// NewDefaultPasswordPolicyChecker creates a checker. A nil policy means
// DefaultPasswordPolicy and nil commonPasswords means the built-in list.
func NewDefaultPasswordPolicyChecker(policy *PasswordPolicy, commonPasswords map[string]bool) *DefaultPasswordPolicyChecker {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	if commonPasswords == nil {
		commonPasswords = defaultCommonPasswords()
	}
	return &DefaultPasswordPolicyChecker{
		policy:          policy,
		commonPasswords: commonPasswords,
	}
}

// CheckPasswordComplexity returns an ErrWeakPassword wrapped error naming the
// first rule the password breaks.
func (pc *DefaultPasswordPolicyChecker) CheckPasswordComplexity(password string) error {
	if err := pc.check(password); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	return nil
}

func (pc *DefaultPasswordPolicyChecker) check(password string) error {
	p := pc.policy
	if utf8.RuneCountInString(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if maxLen := p.maxBytes(); len(password) > maxLen {
		return fmt.Errorf("password must be at most %d bytes long", maxLen)
	}
	if p.RequireUppercase && !uppercasePattern.MatchString(password) {
		return errors.New("password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !lowercasePattern.MatchString(password) {
		return errors.New("password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !digitPattern.MatchString(password) {
		return errors.New("password must contain at least one digit")
	}
	if p.RequireSpecialChar && !specialPattern.MatchString(password) {
		return errors.New("password must contain at least one special character")
	}
	if p.DisallowCommonPwds && pc.commonPasswords[strings.ToLower(password)] {
		return errors.New("password is too common, please choose a more secure password")
	}
	if p.MaxRepeatedChars > 0 && hasRepeatedChars(password, p.MaxRepeatedChars+1) {
		return fmt.Errorf("password cannot contain more than %d consecutive repeated characters", p.MaxRepeatedChars)
	}
	return nil
}

func (p *PasswordPolicy) maxBytes() int {
	if p.MaxLength <= 0 || p.MaxLength > MaxPasswordBytes {
		return MaxPasswordBytes
	}
	return p.MaxLength
}

// hasRepeatedChars reports whether some byte repeats run times in a row.
func hasRepeatedChars(password string, run int) bool {
	count := 1
	for i := 1; i < len(password); i++ {
		if password[i] == password[i-1] {
			count++
			if count >= run {
				return true
			}
		} else {
			count = 1
		}
	}
	return false
}

func (pc *DefaultPasswordPolicyChecker) GetPolicy() *PasswordPolicy {
	return pc.policy
}

// DefaultPasswordPolicy returns a default password policy
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:          8,
		MaxLength:          MaxPasswordBytes,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireDigit:       true,
		RequireSpecialChar: false,
		DisallowCommonPwds: true,
		MaxRepeatedChars:   3,
	}
}

func defaultCommonPasswords() map[string]bool {
	common := []string{
		"password", "password1", "password123", "123456", "12345678", "123456789",
		"qwerty", "qwerty123", "admin", "welcome", "welcome1", "login", "abc123",
		"letmein", "monkey", "iloveyou", "passw0rd", "eduverse", "eduverse1",
	}
	result := make(map[string]bool, len(common))
	for _, pwd := range common {
		result[pwd] = true
	}
	return result
}
