package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AdStatus is the lifecycle state of an ad.
type AdStatus string

const (
	AdStatusPending  AdStatus = "pending"
	AdStatusActive   AdStatus = "active"
	AdStatusRejected AdStatus = "rejected"
	AdStatusExpired  AdStatus = "expired"
)

// Ad is a user-submitted classified listing.
type Ad struct {
	ID     int `json:"id" db:"id"`
	UserID int `json:"user_id" db:"user_id"`

	Title       string     `json:"title" db:"title"`
	Category    string     `json:"category" db:"category"`
	Location    string     `json:"location" db:"location"`
	Description string     `json:"description" db:"description"`
	Services    StringList `json:"services" db:"services"`
	Rate        string     `json:"rate" db:"rate"`
	Contact     string     `json:"contact" db:"contact"`
	Photos      StringList `json:"photos" db:"photos"`

	Status    AdStatus `json:"status" db:"status"`
	IsPremium bool     `json:"is_premium" db:"is_premium"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// Owner columns, only populated by queries that join users.
	Username    string      `json:"username,omitempty" db:"username"`
	AccountType AccountType `json:"account_type,omitempty" db:"account_type"`
}

// AdPatch carries the editable fields of an ad. Nil fields are left alone.
type AdPatch struct {
	Title       *string
	Category    *string
	Location    *string
	Description *string
	Services    *[]string
	Rate        *string
	Contact     *string
	Photos      *[]string
}

// Apply copies the set fields of p onto ad.
func (p AdPatch) Apply(ad *Ad) {
	if p.Title != nil {
		ad.Title = *p.Title
	}
	if p.Category != nil {
		ad.Category = *p.Category
	}
	if p.Location != nil {
		ad.Location = *p.Location
	}
	if p.Description != nil {
		ad.Description = *p.Description
	}
	if p.Services != nil {
		ad.Services = StringList(*p.Services)
	}
	if p.Rate != nil {
		ad.Rate = *p.Rate
	}
	if p.Contact != nil {
		ad.Contact = *p.Contact
	}
	if p.Photos != nil {
		ad.Photos = StringList(*p.Photos)
	}
}

// StringList is a list of strings stored as a JSON array in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for string list")
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// MarshalJSON keeps an empty list as [] rather than null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
