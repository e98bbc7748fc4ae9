package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- in-memory fakes ---

type fakeTxManager struct{}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users    map[uuid.UUID]*model.User
	profiles map[uuid.UUID]*model.Profile
	roles    []model.UserRole
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[uuid.UUID]*model.User),
		profiles: make(map[uuid.UUID]*model.Profile),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) CreateProfile(ctx context.Context, profile *model.Profile) error {
	stored := *profile
	f.profiles[profile.UserID] = &stored
	return nil
}

func (f *fakeUserRepo) AssignRole(ctx context.Context, role *model.UserRole) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	f.roles = append(f.roles, *role)
	return nil
}

func (f *fakeUserRepo) loaded(u *model.User) *model.User {
	out := *u
	out.Profile = f.profiles[u.ID]
	out.Roles = nil
	for _, r := range f.roles {
		if r.UserID == u.ID {
			out.Roles = append(out.Roles, r)
		}
	}
	return &out
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.loaded(u), nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return f.loaded(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) LockForProvisioning(ctx context.Context) error { return nil }

func (f *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *f.loaded(u))
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	stored := *profile
	f.profiles[profile.UserID] = &stored
	return nil
}

func (f *fakeUserRepo) ReplaceRole(ctx context.Context, userID uuid.UUID, role string) error {
	kept := f.roles[:0]
	for _, r := range f.roles {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	f.roles = append(kept, model.UserRole{ID: uuid.New(), UserID: userID, Role: role})
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.users, id)
	delete(f.profiles, id)
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]model.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]model.RefreshToken)}
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.tokens[token.Token] = *token
	return nil
}

func (f *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rt, nil
}

func (f *fakeTokenRepo) Delete(ctx context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	for k, v := range f.tokens {
		if v.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(ctx context.Context) error { return nil }

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func newUserService(repo *fakeUserRepo) (UserService, *fakeTokenRepo, *fakeAuditRepo) {
	tokens := newFakeTokenRepo()
	audit := &fakeAuditRepo{}
	return NewUserService(repo, tokens, audit, &fakeTxManager{}), tokens, audit
}

// --- tests ---

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	first, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Password: "secret123",
		FullName: "The Owner",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, first.Role)

	second, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "waiter@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, second.Role)

	third, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "cook@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, third.Role)

	// Exactly one role assignment per user, never both
	seen := make(map[uuid.UUID]int)
	for _, r := range repo.roles {
		seen[r.UserID]++
	}
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}

func TestRegisterCreatesProfileWithSignupMetadata(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Password: "secret123",
		FullName: "The Owner",
	})
	require.NoError(t, err)
	assert.Equal(t, "The Owner", res.FullName)
	assert.Equal(t, "owner@example.com", res.Email)

	id, err := uuid.Parse(res.ID)
	require.NoError(t, err)
	profile, ok := repo.profiles[id]
	require.True(t, ok, "profile row must exist for the new identity")
	assert.Equal(t, "owner@example.com", profile.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "secret123"})
	assert.EqualError(t, err, "email already exists")
}

func TestLoginIssuesTokenWithRoleClaim(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret")

	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.NotEmpty(t, res.RefreshToken)

	token, err := jwt.Parse(res.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test_secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, model.RoleAdmin, claims["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "wrong"})
	assert.EqualError(t, err, "invalid email or password")
}

func TestRefreshTokenRotates(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret")

	repo := newFakeUserRepo()
	svc, tokens, _ := newUserService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed token must be gone
	_, ok := tokens.tokens[login.RefreshToken]
	assert.False(t, ok)

	_, err = svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.EqualError(t, err, "invalid refresh token")
}

func TestUpdateUserRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, audit := newUserService(repo)

	admin, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)
	staff, err := svc.Register(context.Background(), RegisterRequest{Email: "waiter@example.com", Password: "secret123"})
	require.NoError(t, err)

	promoted, err := svc.UpdateUserRole(context.Background(), admin.ID, staff.ID, UpdateUserRoleRequest{Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionUpdateUserRole, audit.entries[0].Action)

	_, err = svc.UpdateUserRole(context.Background(), admin.ID, staff.ID, UpdateUserRoleRequest{Role: "manager"})
	assert.EqualError(t, err, "invalid role: must be admin or staff")

	_, err = svc.UpdateUserRole(context.Background(), admin.ID, admin.ID, UpdateUserRoleRequest{Role: model.RoleStaff})
	assert.EqualError(t, err, "admins cannot demote themselves")
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	admin, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "secret123"})
	require.NoError(t, err)
	staff, err := svc.Register(context.Background(), RegisterRequest{Email: "waiter@example.com", Password: "secret123"})
	require.NoError(t, err)

	err = svc.DeleteUser(context.Background(), admin.ID, admin.ID)
	assert.EqualError(t, err, "admins cannot delete themselves")

	require.NoError(t, svc.DeleteUser(context.Background(), admin.ID, staff.ID))
	_, err = svc.GetUserByID(context.Background(), staff.ID)
	assert.Error(t, err)
}

func TestUpdateProfileOwnOnly(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _, _ := newUserService(repo)

	user, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "secret123", FullName: "Old Name"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{FullName: "New Name"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
}
