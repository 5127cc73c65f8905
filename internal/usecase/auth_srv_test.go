package usecase

import (
	"context"
	"testing"

	"catering-booking/internal/data/entity"
	"catering-booking/internal/dto/request"
	"catering-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

var testMeta = request.SessionMeta{UserAgent: "go-test", IPAddress: "127.0.0.1"}

func register(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	resp, err := env.svc.Auth.Register(context.Background(), &request.RegisterRequest{
		Name:     "Ana Reyes",
		Email:    email,
		Password: testPassword,
	}, testMeta)
	require.NoError(t, err)
	return resp.Token
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Auth.Register(context.Background(), &request.RegisterRequest{
		Name:     "Ana Reyes",
		Email:    "  Ana@Example.com ",
		Password: testPassword,
	}, testMeta)
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, entity.RoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.Token)

	_, err = env.svc.Auth.Register(context.Background(), &request.RegisterRequest{
		Name:     "Ana Again",
		Email:    "ana@example.com",
		Password: testPassword,
	}, testMeta)
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = env.svc.Auth.Register(context.Background(), &request.RegisterRequest{
		Name:     "Short",
		Email:    "short@example.com",
		Password: "123",
	}, testMeta)
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	requireNoSecret(t, env.logs, testPassword)
	requireNoSecret(t, env.logs, resp.Token)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "ana@example.com")
	ctx := context.Background()

	_, err := env.svc.Auth.Login(ctx, &request.LoginRequest{Email: "ana@example.com", Password: "wrong-password"}, testMeta)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)

	_, err = env.svc.Auth.Login(ctx, &request.LoginRequest{Email: "ghost@example.com", Password: testPassword}, testMeta)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)

	resp, err := env.svc.Auth.Login(ctx, &request.LoginRequest{Email: "ana@example.com", Password: testPassword}, testMeta)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(resp.User.CreatedAt))

	requireNoSecret(t, env.logs, testPassword)
	requireNoSecret(t, env.logs, resp.Token)
}

func TestLogin_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "ana@example.com")
	ctx := context.Background()

	user, err := env.repo.User.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	user.IsActive = false
	env.store.AddUser(user)

	_, err = env.svc.Auth.Login(ctx, &request.LoginRequest{Email: "ana@example.com", Password: testPassword}, testMeta)
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	token := register(t, env, "ana@example.com")
	ctx := context.Background()

	session, err := env.repo.Session.FindValidSession(ctx, uuid.MustParse(token))
	require.NoError(t, err)
	require.NotNil(t, session)

	require.NoError(t, env.svc.Auth.Logout(ctx, token))

	session, err = env.repo.Session.FindValidSession(ctx, uuid.MustParse(token))
	require.NoError(t, err)
	assert.Nil(t, session)

	assert.ErrorIs(t, env.svc.Auth.Logout(ctx, "not-a-token"), utils.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(entity.RoleAssistant)

	resp, err := env.svc.Auth.Me(context.Background(), identityOf(user))
	require.NoError(t, err)
	assert.Equal(t, user.Email, resp.Email)
	assert.Equal(t, entity.RoleAssistant, resp.Role)

	_, err = env.svc.Auth.Me(context.Background(), utils.Identity{UserID: uuid.New(), Role: utils.RoleCustomer})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestCreateStaff(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	assistant := env.addUser(entity.RoleAssistant)
	ctx := context.Background()

	req := &request.CreateStaffRequest{
		Name:     "Lea Cruz",
		Email:    "lea@example.com",
		Password: testPassword,
		Role:     "assistant",
	}

	_, err := env.svc.Auth.CreateStaff(ctx, identityOf(assistant), req)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	resp, err := env.svc.Auth.CreateStaff(ctx, identityOf(admin), req)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAssistant, resp.Role)

	_, err = env.svc.Auth.CreateStaff(ctx, identityOf(admin), &request.CreateStaffRequest{
		Name:     "Nope",
		Email:    "nope@example.com",
		Password: testPassword,
		Role:     "customer",
	})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	requireNoSecret(t, env.logs, testPassword)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.config.Bootstrap = utils.BootstrapConfig{
		AdminEmail:    "owner@example.com",
		AdminPassword: testPassword,
		AdminName:     "Owner",
	}
	ctx := context.Background()

	require.NoError(t, env.svc.Auth.EnsureBootstrapAdmin(ctx))
	require.NoError(t, env.svc.Auth.EnsureBootstrapAdmin(ctx))

	user, err := env.repo.User.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, entity.RoleAdmin, user.Role)
	assert.True(t, utils.CheckPasswordHash(testPassword, user.PasswordHash))

	requireNoSecret(t, env.logs, testPassword)
}

func TestEnsureBootstrapAdmin_Disabled(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.Auth.EnsureBootstrapAdmin(context.Background()))
	assert.Zero(t, env.store.Writes())
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	assistant := env.addUser(entity.RoleAssistant)
	env.addUser(entity.RoleCustomer)
	env.addUser(entity.RoleCustomer)
	ctx := context.Background()

	_, err := env.svc.Auth.ListUsers(ctx, identityOf(assistant), &request.ListUsersRequest{})
	assert.ErrorIs(t, err, utils.ErrForbidden)

	all, err := env.svc.Auth.ListUsers(ctx, identityOf(admin), &request.ListUsersRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Pagination.Total)
	assert.Len(t, all.Data, 4)

	customers, err := env.svc.Auth.ListUsers(ctx, identityOf(admin), &request.ListUsersRequest{Role: "customer"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), customers.Pagination.Total)
	for _, u := range customers.Data {
		assert.Equal(t, entity.RoleCustomer, u.Role)
	}

	_, err = env.svc.Auth.ListUsers(ctx, identityOf(admin), &request.ListUsersRequest{Role: "owner"})
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestSetUserActive(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(entity.RoleAdmin)
	assistant := env.addUser(entity.RoleAssistant)
	ctx := context.Background()
	off, on := false, true

	_, err := env.svc.Auth.SetUserActive(ctx, identityOf(assistant), admin.ID.String(), &request.SetUserActiveRequest{IsActive: &off})
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = env.svc.Auth.SetUserActive(ctx, identityOf(admin), admin.ID.String(), &request.SetUserActiveRequest{IsActive: &off})
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = env.svc.Auth.SetUserActive(ctx, identityOf(admin), "nope", &request.SetUserActiveRequest{IsActive: &off})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = env.svc.Auth.SetUserActive(ctx, identityOf(admin), assistant.ID.String(), &request.SetUserActiveRequest{})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = env.svc.Auth.SetUserActive(ctx, identityOf(admin), uuid.NewString(), &request.SetUserActiveRequest{IsActive: &off})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	resp, err := env.svc.Auth.SetUserActive(ctx, identityOf(admin), assistant.ID.String(), &request.SetUserActiveRequest{IsActive: &off})
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	staff, err := env.repo.User.FindActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, admin.ID, staff[0].ID)

	resp, err = env.svc.Auth.SetUserActive(ctx, identityOf(admin), assistant.ID.String(), &request.SetUserActiveRequest{IsActive: &on})
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
}
