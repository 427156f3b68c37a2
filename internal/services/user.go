package services

import (
	"context"
	"errors"
	"strings"

	"github.com/hookupza/apiserver/internal/store"
	"github.com/hookupza/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced on every password set through the service.
const MinPasswordLength = 8

// defaultAdminAge is stored for admin accounts created without a profile.
const defaultAdminAge = "35-44"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateRole(ctx context.Context, id int, role types.Role) error
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases and the admin access check.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Signup is the self-service registration payload.
type Signup struct {
	Username    string
	Password    string
	Age         string
	Location    string
	Email       string
	AccountType types.AccountType
	VendorData  string
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Register creates a regular user. Free accounts are verified immediately;
// vendor accounts wait for payment verification.
func (s *UserService) Register(ctx context.Context, in Signup) (types.User, error) {
	if in.AccountType == "" {
		in.AccountType = types.AccountFree
	}
	if !in.AccountType.Valid() {
		return types.User{}, ErrInvalidAccountType
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	return s.create(ctx, types.User{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Age:          in.Age,
		Location:     in.Location,
		Email:        in.Email,
		AccountType:  in.AccountType,
		Role:         types.RoleUser,
		VendorData:   in.VendorData,
		Verified:     in.AccountType == types.AccountFree,
	})
}

// CreateAdmin creates a verified admin account on the free tier.
func (s *UserService) CreateAdmin(ctx context.Context, username, password, email string) (types.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	return s.create(ctx, types.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Age:          defaultAdminAge,
		Email:        email,
		AccountType:  types.AccountFree,
		Role:         types.RoleAdmin,
		Verified:     true,
	})
}

func (s *UserService) create(ctx context.Context, user types.User) (types.User, error) {
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrUsernameTaken
		}
		return types.User{}, err
	}
	return created, nil
}

// Authenticate verifies a username / password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IsAdmin reports whether userID exists and holds the admin role. It reads
// storage on every call so role changes apply to the next request.
func (s *UserService) IsAdmin(ctx context.Context, userID int) (bool, error) {
	if userID < 1 {
		return false, nil
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin(), nil
}

func (s *UserService) UpdateRole(ctx context.Context, userID int, role types.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, userID, role)
}

// Delete removes the user and every ad they own.
func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// HashPassword bcrypt-hashes a password after checking its length.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
