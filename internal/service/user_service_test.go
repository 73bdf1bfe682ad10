package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-api/internal/config"
	"inventory-api/internal/domain"
	"inventory-api/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) AddToGroup(ctx context.Context, id uuid.UUID, group string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.InGroup(group) {
		user.Groups = append(user.Groups, group)
	}
	return nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) PruneForUser(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	var pruned int64
	for key, token := range m.tokens {
		if token.UserID == userID && (token.Revoked || token.ExpiresAt.Before(cutoff)) {
			delete(m.tokens, key)
			pruned++
		}
	}
	return pruned, nil
}

var testJWTConfig = config.JWTConfig{
	Secret:        "test-secret-key",
	AccessExpiry:  15,
	RefreshExpiry: 7,
}

func newTestUserService() (UserService, *mockUserRepository, *mockRefreshTokenRepository) {
	userRepo := newMockUserRepository()
	refreshTokenRepo := newMockRefreshTokenRepository()
	return NewUserService(userRepo, refreshTokenRepo, testJWTConfig), userRepo, refreshTokenRepo
}

// Property: signup stores a bcrypt hash, never the plaintext password
func TestProperty_SignupCreatesHashedPasswords(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(username string, password string) bool {
			service, userRepo, _ := newTestUserService()
			ctx := context.Background()

			user, err := service.Signup(ctx, SignupInput{Username: username, Password: password})
			if err != nil {
				t.Logf("FAIL: signup failed: %v", err)
				return false
			}

			if user.PasswordHash == password {
				t.Logf("FAIL: Password stored as plaintext for %s", username)
				return false
			}

			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
				t.Logf("FAIL: Password hash is not a valid bcrypt hash or doesn't match: %v", err)
				return false
			}

			stored, err := userRepo.FindByUsername(ctx, username)
			if err != nil {
				return false
			}

			return stored.PasswordHash == user.PasswordHash && !stored.IsStaff
		},
		gen.RegexMatch(`[a-z]{3,12}`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: access tokens carry the user ID, role and capabilities
func TestProperty_JWTTokensContainRequiredClaims(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("access tokens contain user ID, role and capability claims", prop.ForAll(
		func(username string, password string, staff bool, seller bool) bool {
			service, userRepo, _ := newTestUserService()
			ctx := context.Background()

			user, err := service.Signup(ctx, SignupInput{Username: username, Password: password})
			if err != nil {
				return false
			}

			user.IsStaff = staff
			if seller {
				_ = userRepo.AddToGroup(ctx, user.ID, domain.GroupSalesperson)
			}

			accessToken, _, _, err := service.Login(ctx, username, password)
			if err != nil {
				t.Logf("FAIL: Login failed: %v", err)
				return false
			}

			claims, err := service.ValidateToken(accessToken)
			if err != nil {
				t.Logf("FAIL: Token validation failed: %v", err)
				return false
			}

			if claims.UserID != user.ID || claims.Role != user.Role() {
				return false
			}

			if domain.HasCapability(claims.Capabilities, domain.CapabilitySalesWrite) != (staff || seller) {
				t.Logf("FAIL: sales:write claim mismatch (staff=%v seller=%v)", staff, seller)
				return false
			}
			if domain.HasCapability(claims.Capabilities, domain.CapabilityUsersManage) != staff {
				return false
			}

			return claims.ExpiresAt != nil && claims.IssuedAt != nil
		},
		gen.RegexMatch(`[a-z]{3,12}`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserService_RefreshAndLogout(t *testing.T) {
	service, _, refreshTokenRepo := newTestUserService()
	ctx := context.Background()

	_, err := service.Signup(ctx, SignupInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	_, refreshToken, user, err := service.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	newAccess, err := service.RefreshToken(ctx, refreshToken)
	require.NoError(t, err)
	claims, err := service.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	require.NoError(t, service.Logout(ctx, refreshToken))
	_, err = service.RefreshToken(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Unknown tokens are already logged out.
	assert.NoError(t, service.Logout(ctx, "unknown"))

	_, refreshToken, _, err = service.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	refreshTokenRepo.tokens[refreshToken].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = service.RefreshToken(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestUserService_LoginPrunesDeadTokens(t *testing.T) {
	service, _, refreshTokenRepo := newTestUserService()
	ctx := context.Background()

	_, err := service.Signup(ctx, SignupInput{Username: "dana", Password: "password123"})
	require.NoError(t, err)

	_, revoked, _, err := service.Login(ctx, "dana", "password123")
	require.NoError(t, err)
	require.NoError(t, service.Logout(ctx, revoked))

	_, expired, _, err := service.Login(ctx, "dana", "password123")
	require.NoError(t, err)
	refreshTokenRepo.tokens[expired].ExpiresAt = time.Now().Add(-time.Minute)

	_, live, _, err := service.Login(ctx, "dana", "password123")
	require.NoError(t, err)

	assert.NotContains(t, refreshTokenRepo.tokens, revoked)
	assert.NotContains(t, refreshTokenRepo.tokens, expired)
	assert.Contains(t, refreshTokenRepo.tokens, live)
}

func TestUserService_LoginFailures(t *testing.T) {
	service, _, _ := newTestUserService()
	ctx := context.Background()

	_, err := service.Signup(ctx, SignupInput{Username: "bob", Password: "password123"})
	require.NoError(t, err)

	_, _, _, err = service.Login(ctx, "bob", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = service.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Signup(ctx, SignupInput{Username: "bob", Password: "password123"})
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	_, err = service.Signup(ctx, SignupInput{Username: "carol", Password: "short"})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "password")
}

func TestUserService_ChangePasswordRevokesSessions(t *testing.T) {
	service, _, _ := newTestUserService()
	ctx := context.Background()

	user, err := service.Signup(ctx, SignupInput{Username: "dave", Password: "password123"})
	require.NoError(t, err)
	_, refreshToken, _, err := service.Login(ctx, "dave", "password123")
	require.NoError(t, err)

	err = service.ChangePassword(ctx, user.ID, "not-the-password", "newpassword1")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "old_password")

	require.NoError(t, service.ChangePassword(ctx, user.ID, "password123", "newpassword1"))

	_, err = service.RefreshToken(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = service.Login(ctx, "dave", "newpassword1")
	assert.NoError(t, err)
}

func TestUserService_GroupsAndStaffSeed(t *testing.T) {
	service, userRepo, _ := newTestUserService()
	ctx := context.Background()

	user, err := service.Signup(ctx, SignupInput{Username: "erin", Password: "password123"})
	require.NoError(t, err)

	updated, err := service.AddToGroup(ctx, user.ID, domain.GroupSalesperson)
	require.NoError(t, err)
	assert.True(t, updated.InGroup(domain.GroupSalesperson))

	_, err = service.AddToGroup(ctx, user.ID, "Wizards")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = service.AddToGroup(ctx, uuid.New(), domain.GroupSalesperson)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	created, err := service.EnsureStaff(ctx, "admin", "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, userRepo.users["admin"].IsStaff)

	created, err = service.EnsureStaff(ctx, "admin", "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)
}
