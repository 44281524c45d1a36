// Package domain defines core data structures of the paper trading service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role account tier.
type Role string

const (
	// RoleUser standard account.
	RoleUser Role = "user"
	// RolePremium premium account.
	RolePremium Role = "premium"
	// RoleAdmin administrator.
	RoleAdmin Role = "admin"
)

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role value is known.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RolePremium || r == RoleAdmin
}

// User account with a simulated balance.
// PaperBalance is changed only through the ledger.
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	PaperBalance decimal.Decimal `json:"paper_balance"`
	CreatedAt    time.Time       `json:"created_at"`
	LastLogin    *time.Time      `json:"last_login,omitempty"`
}
