package types

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// AccountType is the billing tier an account signed up with.
type AccountType string

const (
	AccountFree   AccountType = "free"
	AccountVendor AccountType = "vendor"
)

// Valid reports whether a is a known account type.
func (a AccountType) Valid() bool {
	return a == AccountFree || a == AccountVendor
}

// Tier is the poster class that decides how a new ad enters the lifecycle.
// It collapses the role / account type pair into the three combinations
// that behave differently.
type Tier int

const (
	TierStandard Tier = iota
	TierVendor
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierVendor:
		return "vendor"
	case TierAdmin:
		return "admin"
	default:
		return "standard"
	}
}

// TierOf derives the poster tier. The admin role wins over any account type.
func TierOf(role Role, accountType AccountType) Tier {
	switch {
	case role == RoleAdmin:
		return TierAdmin
	case accountType == AccountVendor:
		return TierVendor
	default:
		return TierStandard
	}
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Age is the self-reported age bracket, e.g. "25-34".
	Age string `json:"age" db:"age"`

	Location string `json:"location" db:"location"`
	Email    string `json:"email" db:"email"`

	// AccountType is either free or vendor.
	AccountType AccountType `json:"account_type" db:"account_type"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// VendorData is the raw JSON document supplied at vendor signup.
	VendorData string `json:"-" db:"vendor_data"`

	VendorPaid bool `json:"vendor_paid" db:"vendor_paid"`
	Verified   bool `json:"verified" db:"verified"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Tier returns the lifecycle tier of the user.
func (u User) Tier() Tier {
	return TierOf(u.Role, u.AccountType)
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Stats is the moderation dashboard summary.
type Stats struct {
	TotalUsers   int `json:"total_users" db:"total_users"`
	TotalAds     int `json:"total_ads" db:"total_ads"`
	PendingAds   int `json:"pending_ads" db:"pending_ads"`
	ActiveAds    int `json:"active_ads" db:"active_ads"`
	ExpiredAds   int `json:"expired_ads" db:"expired_ads"`
	PremiumUsers int `json:"premium_users" db:"premium_users"`
	FreeUsers    int `json:"free_users" db:"free_users"`
}
