// Package credential hashes and verifies account passwords. Raw passwords are
// never stored; only bcrypt hashes leave this package.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/config"
)

// Policy describes which passwords are acceptable.
type Policy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// PolicyFromConfig adapts the configured password policy.
func PolicyFromConfig(cfg config.PasswordPolicy) Policy {
	return Policy{
		MinLength:     cfg.MinLength,
		MaxLength:     cfg.MaxLength,
		RequireUpper:  cfg.RequireUpper,
		RequireLower:  cfg.RequireLower,
		RequireDigit:  cfg.RequireDigit,
		RequireSymbol: cfg.RequireSymbol,
	}
}

// Check returns a WeakPassword error naming every unmet rule.
func (p Policy) Check(raw string) error {
	var problems []string
	if len(raw) < p.MinLength {
		problems = append(problems, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && len(raw) > p.MaxLength {
		problems = append(problems, fmt.Sprintf("at most %d bytes", p.MaxLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if p.RequireUpper && !upper {
		problems = append(problems, "an uppercase letter")
	}
	if p.RequireLower && !lower {
		problems = append(problems, "a lowercase letter")
	}
	if p.RequireDigit && !digit {
		problems = append(problems, "a digit")
	}
	if p.RequireSymbol && !symbol {
		problems = append(problems, "a symbol")
	}

	if len(problems) > 0 {
		return apperror.NewWeakPasswordError("password must contain " + strings.Join(problems, ", "))
	}
	return nil
}

// Hasher applies the policy and produces bcrypt hashes.
type Hasher struct {
	policy Policy
	cost   int
}

// NewHasher creates a Hasher. A cost outside bcrypt's range falls back to the
// library default.
func NewHasher(policy Policy, cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{policy: policy, cost: cost}
}

// Set validates raw against the policy and returns its hash.
func (h *Hasher) Set(raw string) (string, error) {
	if err := h.policy.Check(raw); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", apperror.NewInternalError("failed to hash password", err)
	}
	return string(hashed), nil
}

// Verify reports whether raw matches hash. The comparison is constant time.
func (h *Hasher) Verify(raw, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		// A malformed stored hash is treated as a mismatch.
		return false
	}
	return err == nil
}
