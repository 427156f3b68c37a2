package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hookupza/apiserver/types"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const missingFieldsMessage = "Missing required fields"

type SignupRequest struct {
	Username    string          `json:"username" validate:"required,max=64"`
	Password    string          `json:"password" validate:"required"`
	Age         string          `json:"age" validate:"required"`
	Location    string          `json:"location"`
	Email       string          `json:"email" validate:"omitempty,max=254"`
	AccountType string          `json:"account_type" validate:"omitempty,oneof=free vendor"`
	VendorData  json.RawMessage `json:"vendor_data"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message     string            `json:"message"`
	UserID      int               `json:"user_id"`
	Username    string            `json:"username"`
	AccountType types.AccountType `json:"account_type"`
	Role        types.Role        `json:"role"`
	Token       string            `json:"token"`
}

type PostAdRequest struct {
	Title       string   `json:"title" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Location    string   `json:"location"`
	Description string   `json:"description" validate:"required"`
	Services    []string `json:"services"`
	Rate        string   `json:"rate"`
	Contact     string   `json:"contact" validate:"required"`
	Photos      []string `json:"photos" validate:"max=20"`
}

func (r PostAdRequest) Ad() types.Ad {
	return types.Ad{
		Title:       strings.TrimSpace(r.Title),
		Category:    strings.TrimSpace(r.Category),
		Location:    strings.TrimSpace(r.Location),
		Description: strings.TrimSpace(r.Description),
		Services:    types.StringList(r.Services),
		Rate:        strings.TrimSpace(r.Rate),
		Contact:     strings.TrimSpace(r.Contact),
		Photos:      types.StringList(r.Photos),
	}
}

type PostAdResponse struct {
	Message       string         `json:"message"`
	AdID          int            `json:"ad_id"`
	Status        types.AdStatus `json:"status"`
	IsPremium     bool           `json:"is_premium"`
	ExpiresInDays int            `json:"expires_in_days"`
}

// EditAdRequest carries a partial update; absent fields are left alone.
// Fields that post_ad requires may be changed but not blanked.
type EditAdRequest struct {
	Title       *string   `json:"title" validate:"omitnil,min=1"`
	Category    *string   `json:"category" validate:"omitnil,min=1"`
	Location    *string   `json:"location"`
	Description *string   `json:"description" validate:"omitnil,min=1"`
	Services    *[]string `json:"services"`
	Rate        *string   `json:"rate"`
	Contact     *string   `json:"contact" validate:"omitnil,min=1"`
	Photos      *[]string `json:"photos" validate:"omitnil,max=20"`
}

// Trimmed returns a copy with surrounding whitespace removed from the set
// string fields.
func (r EditAdRequest) Trimmed() EditAdRequest {
	return EditAdRequest{
		Title:       trimPtr(r.Title),
		Category:    trimPtr(r.Category),
		Location:    trimPtr(r.Location),
		Description: trimPtr(r.Description),
		Services:    r.Services,
		Rate:        trimPtr(r.Rate),
		Contact:     trimPtr(r.Contact),
		Photos:      r.Photos,
	}
}

func (r EditAdRequest) Patch() types.AdPatch {
	return types.AdPatch{
		Title:       r.Title,
		Category:    r.Category,
		Location:    r.Location,
		Description: r.Description,
		Services:    r.Services,
		Rate:        r.Rate,
		Contact:     r.Contact,
		Photos:      r.Photos,
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

type DeletePhotoRequest struct {
	Filename string `json:"filename" validate:"required"`
}

type CreateAdminRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email" validate:"omitempty,max=254"`
}

type UpdateRoleRequest struct {
	UserID int    `json:"user_id" validate:"required,gt=0"`
	Role   string `json:"role" validate:"required"`
}

type DeleteUserRequest struct {
	UserID int `json:"user_id" validate:"required,gt=0"`
}

type AdListResponse struct {
	Ads []types.Ad `json:"ads"`
}

type AdResponse struct {
	Ad types.Ad `json:"ad"`
}

type UserListResponse struct {
	Users []types.User `json:"users"`
}

// validateRequest returns a client-facing message for the first failed rule.
func validateRequest(v any) (string, bool) {
	err := validate.Struct(v)
	if err == nil {
		return "", true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request", false
	}
	first := fieldErrs[0]
	if first.Tag() == "required" {
		return missingFieldsMessage, false
	}
	return "invalid " + first.Field(), false
}
