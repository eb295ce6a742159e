package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/oauth2"
)

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime: 24 * time.Hour,
		BcryptCost:      4,
		SecureCookies:   false,
	}
}

func setupDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupService(t *testing.T, cfg config.Auth) *Service {
	t.Helper()
	return NewService(setupDB(t).DB, cfg)
}

func registerInput(username, email string) RegisterInput {
	return RegisterInput{
		Username:  username,
		Email:     email,
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "User",
	}
}

func mustRegister(t *testing.T, svc *Service, actor *entities.User, in RegisterInput) *entities.User {
	t.Helper()
	user, err := svc.Register(context.Background(), actor, in)
	require.NoError(t, err)
	return user
}

func TestService_Register(t *testing.T) {
	svc := setupService(t, testAuthConfig())
	ctx := context.Background()

	in := registerInput("alice", "  Alice@Example.COM ")
	in.Role = entities.RoleAdmin
	user := mustRegister(t, svc, nil, in)

	assert.True(t, entities.IsValidID(user.ID))
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, entities.RoleMember, user.Role, "public registration cannot choose a role")
	assert.Equal(t, entities.StatusActive, user.Status)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.False(t, user.MembershipDate.IsZero())

	t.Run("duplicate email names the field", func(t *testing.T) {
		_, err := svc.Register(ctx, nil, registerInput("alice2", "alice@example.com"))
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindDuplicate, e.Kind)
		assert.Equal(t, "email", e.Field)
	})

	t.Run("duplicate username names the field", func(t *testing.T) {
		_, err := svc.Register(ctx, nil, registerInput("alice", "other@example.com"))
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "username", e.Field)
	})

	t.Run("short password", func(t *testing.T) {
		in := registerInput("bob", "bob@example.com")
		in.Password = "123"
		_, err := svc.Register(ctx, nil, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("admin caller may set role and status", func(t *testing.T) {
		admin := &entities.User{Role: entities.RoleAdmin}
		in := registerInput("carol", "carol@example.com")
		in.Role = entities.RoleAdmin
		in.Status = entities.StatusSuspended
		user := mustRegister(t, svc, admin, in)
		assert.Equal(t, entities.RoleAdmin, user.Role)
		assert.Equal(t, entities.StatusSuspended, user.Status)
	})
}

func TestService_CreateAdmin(t *testing.T) {
	svc := setupService(t, testAuthConfig())

	user, err := svc.CreateAdmin(context.Background(), registerInput("root", "root@example.com"))
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	has, err := svc.HasUsers(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
}

func TestService_Authenticate(t *testing.T) {
	svc := setupService(t, testAuthConfig())
	ctx := context.Background()
	mustRegister(t, svc, nil, registerInput("dave", "dave@example.com"))

	for _, login := range []string{"dave", "dave@example.com", "DAVE@example.com"} {
		user, err := svc.Authenticate(ctx, login, "secret123")
		require.NoError(t, err, login)
		assert.Equal(t, "dave", user.Username)
	}

	_, err := svc.Authenticate(ctx, "dave", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_UpdateUser(t *testing.T) {
	svc := setupService(t, testAuthConfig())
	ctx := context.Background()

	member := mustRegister(t, svc, nil, registerInput("erin", "erin@example.com"))
	other := mustRegister(t, svc, nil, registerInput("frank", "frank@example.com"))
	admin, err := svc.CreateAdmin(ctx, registerInput("admin", "admin@example.com"))
	require.NoError(t, err)

	t.Run("self update rehashes password", func(t *testing.T) {
		password := "newsecret"
		city := "Springfield"
		updated, err := svc.UpdateUser(ctx, member, member.ID, UserChanges{Password: &password, City: &city})
		require.NoError(t, err)
		assert.Equal(t, "Springfield", updated.City)

		_, err = svc.Authenticate(ctx, "erin", "newsecret")
		assert.NoError(t, err)
		_, err = svc.Authenticate(ctx, "erin", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("member cannot edit others", func(t *testing.T) {
		name := "Mallory"
		_, err := svc.UpdateUser(ctx, member, other.ID, UserChanges{FirstName: &name})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("member cannot promote self", func(t *testing.T) {
		role := entities.RoleAdmin
		_, err := svc.UpdateUser(ctx, member, member.ID, UserChanges{Role: &role})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("anonymous caller", func(t *testing.T) {
		name := "X"
		_, err := svc.UpdateUser(ctx, nil, member.ID, UserChanges{FirstName: &name})
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})

	t.Run("admin suspends member", func(t *testing.T) {
		status := entities.StatusSuspended
		updated, err := svc.UpdateUser(ctx, admin, other.ID, UserChanges{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, entities.StatusSuspended, updated.Status)
	})

	t.Run("email collision", func(t *testing.T) {
		email := "FRANK@example.com"
		_, err := svc.UpdateUser(ctx, member, member.ID, UserChanges{Email: &email})
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "email", e.Field)
	})

	t.Run("missing user", func(t *testing.T) {
		name := "Ghost"
		_, err := svc.UpdateUser(ctx, admin, entities.NewID(), UserChanges{FirstName: &name})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestService_DeleteUser(t *testing.T) {
	svc := setupService(t, testAuthConfig())
	ctx := context.Background()

	member := mustRegister(t, svc, nil, registerInput("gina", "gina@example.com"))
	other := mustRegister(t, svc, nil, registerInput("hank", "hank@example.com"))

	assert.True(t, apperr.IsKind(svc.DeleteUser(ctx, member, other.ID), apperr.KindForbidden))
	require.NoError(t, svc.DeleteUser(ctx, member, member.ID))

	_, err := svc.GetUser(ctx, member.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.GetUserByID(ctx, member.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_SignInWithProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates member with placeholder email", func(t *testing.T) {
		svc := setupService(t, testAuthConfig())
		profile := &oauth2.Profile{Provider: "github", ID: "1001", Login: "octo-cat", Name: "Octo Cat"}

		user, err := svc.SignInWithProfile(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, "octo_cat", user.Username)
		assert.Equal(t, "octo_cat@github.com", user.Email)
		assert.Equal(t, "Octo", user.FirstName)
		assert.Equal(t, "Cat", user.LastName)
		assert.Equal(t, entities.RoleMember, user.Role)
		assert.Equal(t, entities.StatusActive, user.Status)
		require.NotNil(t, user.ExternalID)
		assert.Equal(t, "github:1001", *user.ExternalID)

		again, err := svc.SignInWithProfile(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID, "second sign-in finds the same account")
	})

	t.Run("links verified email", func(t *testing.T) {
		svc := setupService(t, testAuthConfig())
		existing := mustRegister(t, svc, nil, registerInput("ivy", "ivy@example.com"))

		user, err := svc.SignInWithProfile(ctx, &oauth2.Profile{
			Provider: "github", ID: "2002", Login: "ivy", Email: "IVY@example.com", EmailVerified: true,
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)

		reloaded, err := svc.GetUser(ctx, existing.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.ExternalID)
		assert.Equal(t, "github:2002", *reloaded.ExternalID)
	})

	t.Run("refuses unverified email", func(t *testing.T) {
		svc := setupService(t, testAuthConfig())
		mustRegister(t, svc, nil, registerInput("jack", "jack@example.com"))

		_, err := svc.SignInWithProfile(ctx, &oauth2.Profile{
			Provider: "github", ID: "3003", Login: "jack", Email: "jack@example.com",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("links unverified email when configured", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.LinkUnverifiedEmail = true
		svc := setupService(t, cfg)
		existing := mustRegister(t, svc, nil, registerInput("kate", "kate@example.com"))

		user, err := svc.SignInWithProfile(ctx, &oauth2.Profile{
			Provider: "github", ID: "4004", Login: "kate", Email: "kate@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
	})

	t.Run("username collision falls back to provider id", func(t *testing.T) {
		svc := setupService(t, testAuthConfig())
		mustRegister(t, svc, nil, registerInput("leo", "leo@example.com"))

		user, err := svc.SignInWithProfile(ctx, &oauth2.Profile{
			Provider: "github", ID: "5005", Login: "leo", Email: "leo.other@example.com", EmailVerified: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "github_5005", user.Username)
		assert.Equal(t, "leo", user.FirstName)
	})
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeUsername("a-b.c"))
	assert.Equal(t, "abc", sanitizeUsername("a!b@c"))
	assert.Len(t, sanitizeUsername("abcdefghijklmnopqrstuvwxyz0123456789"), 30)
}
