package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hookupza/apiserver/internal/store"
	"github.com/hookupza/apiserver/types"
)

type memoryUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int]types.User{}}
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryUserRepo) List(ctx context.Context) ([]types.User, error) {
	out := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByUsername(ctx, user.Username); err == nil {
		return types.User{}, store.ErrConflict
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) UpdateRole(ctx context.Context, id int, role types.Role) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func TestRegisterDefaultsAndVerification(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo())
	ctx := context.Background()

	free, err := svc.Register(ctx, Signup{Username: " thandi ", Password: "longenough", Age: "25-34"})
	if err != nil {
		t.Fatalf("register free: %v", err)
	}
	if free.Username != "thandi" || free.AccountType != types.AccountFree || !free.Verified || free.Role != types.RoleUser {
		t.Fatalf("unexpected free user: %+v", free)
	}
	if free.PasswordHash == "longenough" {
		t.Fatalf("password stored in clear text")
	}

	vendor, err := svc.Register(ctx, Signup{Username: "shop", Password: "longenough", Age: "35-44", AccountType: types.AccountVendor})
	if err != nil {
		t.Fatalf("register vendor: %v", err)
	}
	if vendor.Verified {
		t.Fatalf("vendor accounts start unverified")
	}

	if _, err := svc.Register(ctx, Signup{Username: "shop", Password: "longenough"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Register(ctx, Signup{Username: "short", Password: "1234567"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := svc.Register(ctx, Signup{Username: "odd", Password: "longenough", AccountType: "gold"}); !errors.Is(err, ErrInvalidAccountType) {
		t.Fatalf("expected ErrInvalidAccountType, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Signup{Username: "sipho", Password: "correct-horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "sipho", "correct-horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "sipho", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestIsAdminFollowsStoredRole(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Signup{Username: "lerato", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	isAdmin, err := svc.IsAdmin(ctx, user.ID)
	if err != nil || isAdmin {
		t.Fatalf("expected non-admin, got %v (%v)", isAdmin, err)
	}

	if err := svc.UpdateRole(ctx, user.ID, types.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	isAdmin, err = svc.IsAdmin(ctx, user.ID)
	if err != nil || !isAdmin {
		t.Fatalf("expected admin after promotion, got %v (%v)", isAdmin, err)
	}

	if err := svc.UpdateRole(ctx, user.ID, types.RoleUser); err != nil {
		t.Fatalf("demote: %v", err)
	}
	isAdmin, _ = svc.IsAdmin(ctx, user.ID)
	if isAdmin {
		t.Fatalf("expected demotion to apply immediately")
	}

	if isAdmin, err := svc.IsAdmin(ctx, 999); err != nil || isAdmin {
		t.Fatalf("expected unknown user to be non-admin, got %v (%v)", isAdmin, err)
	}
	if err := svc.UpdateRole(ctx, user.ID, "superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestCreateAdminIsVerifiedAdmin(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo())

	admin, err := svc.CreateAdmin(context.Background(), "root", "longenough", "root@example.com")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if !admin.IsAdmin() || !admin.Verified || admin.Tier() != types.TierAdmin {
		t.Fatalf("unexpected admin: %+v", admin)
	}
}
