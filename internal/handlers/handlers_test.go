package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/store"
	"github.com/hookupza/apiserver/types"
)

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	out := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByUsername(ctx, user.Username); err == nil {
		return types.User{}, store.ErrConflict
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id int, role types.Role) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeAdRepo struct {
	nextID int
	ads    map[int]types.Ad
}

func (r *fakeAdRepo) Create(ctx context.Context, ad types.Ad) (types.Ad, error) {
	r.nextID++
	ad.ID = r.nextID
	r.ads[ad.ID] = ad
	return ad, nil
}

func (r *fakeAdRepo) Get(ctx context.Context, id int) (types.Ad, error) {
	ad, ok := r.ads[id]
	if !ok {
		return types.Ad{}, store.ErrNotFound
	}
	return ad, nil
}

func (r *fakeAdRepo) ListByUser(ctx context.Context, userID int) ([]types.Ad, error) {
	out := []types.Ad{}
	for _, ad := range r.all() {
		if ad.UserID == userID {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (r *fakeAdRepo) ListAll(ctx context.Context) ([]types.Ad, error) {
	return r.all(), nil
}

func (r *fakeAdRepo) ListPublic(ctx context.Context, category string, now time.Time, limit int) ([]types.Ad, error) {
	out := []types.Ad{}
	for _, ad := range r.all() {
		if ad.Status == types.AdStatusActive && ad.ExpiresAt.After(now) && (category == "" || ad.Category == category) {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (r *fakeAdRepo) Update(ctx context.Context, ad types.Ad) (types.Ad, error) {
	r.ads[ad.ID] = ad
	return ad, nil
}

func (r *fakeAdRepo) DeleteOwned(ctx context.Context, id, userID int) error {
	ad, ok := r.ads[id]
	if !ok || ad.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.ads, id)
	return nil
}

func (r *fakeAdRepo) SetStatus(ctx context.Context, id int, status types.AdStatus) (int, error) {
	ad, ok := r.ads[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	ad.Status = status
	r.ads[id] = ad
	return ad.UserID, nil
}

func (r *fakeAdRepo) ActivatePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, ad := range r.ads {
		if ad.Status == types.AdStatusPending && !ad.CreatedAt.After(cutoff) {
			ad.Status = types.AdStatusActive
			r.ads[id] = ad
			n++
		}
	}
	return n, nil
}

func (r *fakeAdRepo) ExpireActiveBefore(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, ad := range r.ads {
		if ad.Status == types.AdStatusActive && !ad.ExpiresAt.After(now) {
			ad.Status = types.AdStatusExpired
			r.ads[id] = ad
			n++
		}
	}
	return n, nil
}

func (r *fakeAdRepo) Stats(ctx context.Context) (types.Stats, error) {
	return types.Stats{TotalAds: len(r.ads)}, nil
}

func (r *fakeAdRepo) all() []types.Ad {
	out := make([]types.Ad, 0, len(r.ads))
	for _, ad := range r.ads {
		out = append(out, ad)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

type testAPI struct {
	router   http.Handler
	users    *services.UserService
	ads      *fakeAdRepo
	sessions *SessionManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := logging.NewWithWriter(io.Discard, "error", false)
	userService := services.NewUserService(&fakeUserRepo{users: map[int]types.User{}})
	adRepo := &fakeAdRepo{ads: map[int]types.Ad{}}
	adService := services.NewAdService(adRepo, services.WithLogger(logger))
	sessions := NewSessionManager(config.SessionConfig{Secret: "test-secret"})

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		AuthRouter(r, userService, sessions, nil, logger)
		AdRouter(r, adService, userService, sessions.RequireAuth, logger)
		r.Route("/admin", func(r chi.Router) {
			AdminRouter(r, userService, adService, sessions, logger)
		})
	})

	return &testAPI{
		router:   router,
		users:    userService,
		ads:      adRepo,
		sessions: sessions,
	}
}

func (a *testAPI) tokenFor(t *testing.T, userID int) string {
	t.Helper()

	token, err := issueToken(userID, a.sessions.secret, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, username string, accountType types.AccountType) types.User {
	t.Helper()

	user, err := a.users.Register(context.Background(), services.Signup{
		Username:    username,
		Password:    "longenough",
		Age:         "25-34",
		AccountType: accountType,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

var adminRoutes = []struct {
	method string
	path   string
}{
	{http.MethodGet, "/api/admin/stats"},
	{http.MethodGet, "/api/admin/all_ads"},
	{http.MethodPost, "/api/admin/approve_ad/1"},
	{http.MethodPost, "/api/admin/reject_ad/1"},
	{http.MethodPost, "/api/admin/auto_approve"},
	{http.MethodPost, "/api/admin/expire_old_ads"},
	{http.MethodGet, "/api/admin/users"},
	{http.MethodPost, "/api/admin/create_admin"},
	{http.MethodPost, "/api/admin/update_role"},
	{http.MethodDelete, "/api/admin/delete_user"},
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "regular", types.AccountVendor)
	token := api.tokenFor(t, user.ID)

	for _, route := range adminRoutes {
		rec := api.do(t, route.method, route.path, token, map[string]any{})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", route.method, route.path, rec.Code)
		}

		rec = api.do(t, route.method, route.path, "", map[string]any{})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without session: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestAdminRoleChangeAppliesToNextRequest(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "promoted", types.AccountFree)
	token := api.tokenFor(t, user.ID)

	if rec := api.do(t, http.MethodGet, "/api/admin/stats", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", rec.Code)
	}
	if err := api.users.UpdateRole(context.Background(), user.ID, types.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if rec := api.do(t, http.MethodGet, "/api/admin/stats", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after promotion, got %d", rec.Code)
	}
}

func TestCheckRoleReportsWithoutEnforcing(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "plain", types.AccountFree)

	rec := api.do(t, http.MethodGet, "/api/admin/check_role", api.tokenFor(t, user.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp CheckRoleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsAdmin {
		t.Fatalf("expected is_admin=false")
	}

	if rec := api.do(t, http.MethodGet, "/api/admin/check_role", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
}

func TestSignupLoginAndCheckAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/signup", "", map[string]any{
		"username": "naledi",
		"password": "longenough",
		"age":      "25-34",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != defaultSessionCookie || cookies[0].Value == "" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/check_auth", nil)
	req.AddCookie(cookies[0])
	check := httptest.NewRecorder()
	api.router.ServeHTTP(check, req)
	if check.Code != http.StatusOK {
		t.Fatalf("check_auth: expected 200, got %d", check.Code)
	}
	var auth CheckAuthResponse
	if err := json.NewDecoder(check.Body).Decode(&auth); err != nil {
		t.Fatalf("decode check_auth: %v", err)
	}
	if !auth.LoggedIn || auth.UserData == nil || auth.UserData.Username != "naledi" {
		t.Fatalf("unexpected check_auth response: %+v", auth)
	}

	dup := api.do(t, http.MethodPost, "/api/signup", "", map[string]any{
		"username": "naledi",
		"password": "longenough",
		"age":      "25-34",
	})
	if dup.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: expected 400, got %d", dup.Code)
	}

	bad := api.do(t, http.MethodPost, "/api/login", "", map[string]any{"username": "naledi", "password": "wrong-one"})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", bad.Code)
	}
	missing := api.do(t, http.MethodPost, "/api/login", "", map[string]any{"username": "naledi"})
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", missing.Code)
	}
	ok := api.do(t, http.MethodPost, "/api/login", "", map[string]any{"username": "naledi", "password": "longenough"})
	if ok.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", ok.Code)
	}

	if rec := api.do(t, http.MethodGet, "/api/check_auth", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("check_auth without session: expected 401, got %d", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	api := newTestAPI(t)

	cases := []map[string]any{
		{"username": "a", "password": "longenough"},
		{"username": "b", "password": "short", "age": "18-24"},
		{"username": "c", "password": "longenough", "age": "18-24", "account_type": "gold"},
	}
	for _, body := range cases {
		if rec := api.do(t, http.MethodPost, "/api/signup", "", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("signup %v: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestPostAdPlacementFollowsAccountType(t *testing.T) {
	api := newTestAPI(t)
	free := api.register(t, "freebie", types.AccountFree)
	vendor := api.register(t, "seller", types.AccountVendor)

	body := map[string]any{
		"title":       "Mobile car wash",
		"category":    "services",
		"description": "We come to you",
		"contact":     "0829990000",
		"services":    []string{"wash", "polish"},
	}

	cases := []struct {
		user    types.User
		status  types.AdStatus
		premium bool
		days    int
	}{
		{free, types.AdStatusPending, false, 3},
		{vendor, types.AdStatusActive, true, 30},
	}
	for _, tc := range cases {
		rec := api.do(t, http.MethodPost, "/api/post_ad", api.tokenFor(t, tc.user.ID), body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s post_ad: expected 201, got %d: %s", tc.user.Username, rec.Code, rec.Body.String())
		}
		var resp PostAdResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != tc.status || resp.IsPremium != tc.premium || resp.ExpiresInDays != tc.days {
			t.Fatalf("%s: unexpected placement %+v", tc.user.Username, resp)
		}
	}

	missing := api.do(t, http.MethodPost, "/api/post_ad", api.tokenFor(t, free.ID), map[string]any{"title": "x"})
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", missing.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/post_ad", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous post: expected 401, got %d", rec.Code)
	}
}

func TestAdminModeration(t *testing.T) {
	api := newTestAPI(t)
	admin, err := api.users.CreateAdmin(context.Background(), "boss", "longenough", "")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	owner := api.register(t, "owner", types.AccountFree)
	api.ads.ads[1] = types.Ad{ID: 1, UserID: owner.ID, Status: types.AdStatusPending}
	api.ads.nextID = 1
	token := api.tokenFor(t, admin.ID)

	if rec := api.do(t, http.MethodPost, "/api/admin/approve_ad/1", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}
	if api.ads.ads[1].Status != types.AdStatusActive {
		t.Fatalf("expected active, got %s", api.ads.ads[1].Status)
	}
	if rec := api.do(t, http.MethodPost, "/api/admin/reject_ad/1", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", rec.Code)
	}
	if api.ads.ads[1].Status != types.AdStatusRejected {
		t.Fatalf("expected rejected, got %s", api.ads.ads[1].Status)
	}
	if rec := api.do(t, http.MethodPost, "/api/admin/approve_ad/77", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ad: expected 404, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/admin/auto_approve?older_than=bogus", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad older_than: expected 400, got %d", rec.Code)
	}

	rec := api.do(t, http.MethodPost, "/api/admin/update_role", token, map[string]any{"user_id": owner.ID, "role": "superuser"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid role: expected 400, got %d", rec.Code)
	}
}

func TestEditAndDeleteOwnership(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register(t, "owner", types.AccountFree)
	other := api.register(t, "other", types.AccountFree)
	api.ads.ads[1] = types.Ad{ID: 1, UserID: owner.ID, Title: "Old", Status: types.AdStatusPending}
	api.ads.nextID = 1

	rec := api.do(t, http.MethodPut, "/api/edit_ad/1", api.tokenFor(t, other.ID), map[string]any{"title": "Hijack"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign edit: expected 403, got %d", rec.Code)
	}
	rec = api.do(t, http.MethodDelete, "/api/delete_ad/1", api.tokenFor(t, other.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPut, "/api/edit_ad/1", api.tokenFor(t, owner.ID), map[string]any{"title": "New"})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner edit: expected 200, got %d", rec.Code)
	}
	if api.ads.ads[1].Title != "New" || api.ads.ads[1].Status != types.AdStatusPending {
		t.Fatalf("unexpected ad after edit: %+v", api.ads.ads[1])
	}

	rec = api.do(t, http.MethodDelete, "/api/delete_ad/1", api.tokenFor(t, owner.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/api/get_ad/1", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted ad: expected 404, got %d", rec.Code)
	}
}

func TestEditCannotBlankRequiredFields(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register(t, "editor", types.AccountFree)
	api.ads.ads[1] = types.Ad{ID: 1, UserID: owner.ID, Title: "Keep", Category: "services", Status: types.AdStatusActive}
	api.ads.nextID = 1
	token := api.tokenFor(t, owner.ID)

	tooMany := make([]string, 21)
	for i := range tooMany {
		tooMany[i] = "/uploads/p.png"
	}
	cases := []map[string]any{
		{"title": ""},
		{"title": "   "},
		{"category": ""},
		{"contact": ""},
		{"photos": tooMany},
	}
	for _, body := range cases {
		if rec := api.do(t, http.MethodPut, "/api/edit_ad/1", token, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", body, rec.Code)
		}
	}
	if got := api.ads.ads[1]; got.Title != "Keep" || got.Category != "services" {
		t.Fatalf("rejected edits must not change the ad: %+v", got)
	}

	rec := api.do(t, http.MethodPut, "/api/edit_ad/1", token, map[string]any{"location": "", "title": " Fresh "})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid edit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := api.ads.ads[1]; got.Title != "Fresh" || got.Location != "" {
		t.Fatalf("unexpected ad after edit: %+v", got)
	}
}

func TestUserIDFromContextOnlyAcceptsInt(t *testing.T) {
	ctx := context.Background()

	if id, err := userIDFromContext(withUserID(ctx, 5)); err != nil || id != 5 {
		t.Fatalf("expected 5, got %d (%v)", id, err)
	}
	if _, err := userIDFromContext(withUserID(ctx, 0)); err == nil {
		t.Fatalf("expected error for non-positive id")
	}
	if _, err := userIDFromContext(context.WithValue(ctx, contextSubjectKey, "5")); err == nil {
		t.Fatalf("expected error for string subject")
	}
	if _, err := userIDFromContext(ctx); err == nil {
		t.Fatalf("expected error for missing subject")
	}
}
