package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"inventory-api/internal/config"
	"inventory-api/internal/domain"
	"inventory-api/internal/repository"
	"inventory-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

type userTestEnv struct {
	router   chi.Router
	service  service.UserService
	userRepo *mockUserRepository
}

func newUserTestEnv() *userTestEnv {
	userRepo := newMockUserRepository()
	userService := service.NewUserService(userRepo, newMockRefreshTokenRepository(), config.JWTConfig{
		Secret:        testSecret,
		AccessExpiry:  15,
		RefreshExpiry: 7,
	})

	router := chi.NewRouter()
	NewUserHandler(userService, zap.NewNop()).RegisterRoutes(router, testAuth(), passThrough)

	return &userTestEnv{router: router, service: userService, userRepo: userRepo}
}

// Property: malformed signup payloads are rejected with the error envelope
func TestProperty_InvalidSignupDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("signup with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			env := newUserTestEnv()

			var reqBody SignupRequest
			switch invalidCase % 4 {
			case 0:
				reqBody = SignupRequest{Username: "", Password: "ValidPass123"}
			case 1:
				reqBody = SignupRequest{Username: "john", Email: "not-an-email", Password: "ValidPass123"}
			case 2:
				reqBody = SignupRequest{Username: "john", Password: "short"}
			case 3:
				reqBody = SignupRequest{Username: "john"}
			}

			w := doRequest(t, env.router, http.MethodPost, "/api/users/signup", reqBody, "")
			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: Expected 400 status code, got %d", w.Code)
				return false
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				return false
			}
			_, exists := response["error"]
			return exists && len(env.userRepo.users) == 0
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: signup logs the new account in and returns its profile
func TestProperty_SignupReturnsTokensAndProfile(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("signup returns both tokens and an unprivileged profile", prop.ForAll(
		func(username, password, firstName string) bool {
			env := newUserTestEnv()

			w := doRequest(t, env.router, http.MethodPost, "/api/users/signup", SignupRequest{
				Username:  username,
				Password:  password,
				FirstName: firstName,
			}, "")
			if w.Code != http.StatusCreated {
				t.Logf("FAIL: Expected 201 status code, got %d", w.Code)
				return false
			}

			var resp LoginResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				return false
			}

			if resp.AccessToken == "" || resp.RefreshToken == "" {
				t.Logf("FAIL: missing tokens")
				return false
			}
			if _, err := uuid.Parse(resp.User.ID); err != nil {
				return false
			}

			return resp.User.Username == username &&
				resp.User.FirstName == firstName &&
				!resp.User.IsStaff &&
				len(resp.User.Capabilities) == 0
		},
		gen.RegexMatch(`[a-z]{3,12}`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserHandler_LoginAndProfile(t *testing.T) {
	env := newUserTestEnv()
	ctx := context.Background()

	user, err := env.service.Signup(ctx, service.SignupInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	_, err = env.service.AddToGroup(ctx, user.ID, domain.GroupSalesperson)
	require.NoError(t, err)

	w := doRequest(t, env.router, http.MethodPost, "/api/users/login",
		LoginRequest{Username: "alice", Password: "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, env.router, http.MethodPost, "/api/users/login",
		LoginRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var login LoginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&login))
	assert.Equal(t, []string{domain.GroupSalesperson}, login.User.Groups)
	assert.Contains(t, login.User.Capabilities, domain.CapabilitySalesWrite)
	assert.NotContains(t, login.User.Capabilities, domain.CapabilityUsersManage)

	w = doRequest(t, env.router, http.MethodGet, "/api/users/profile", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var profile UserProfile
	require.NoError(t, json.NewDecoder(w.Body).Decode(&profile))
	assert.Equal(t, user.ID.String(), profile.ID)
	assert.Equal(t, "user", profile.Role)

	assert.Equal(t, http.StatusUnauthorized,
		doRequest(t, env.router, http.MethodGet, "/api/users/profile", nil, "").Code)

	w = doRequest(t, env.router, http.MethodPost, "/api/users/refresh",
		RefreshRequest{RefreshToken: login.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, env.router, http.MethodPost, "/api/users/logout",
		RefreshRequest{RefreshToken: login.RefreshToken}, login.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, env.router, http.MethodPost, "/api/users/refresh",
		RefreshRequest{RefreshToken: login.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_DuplicateSignup(t *testing.T) {
	env := newUserTestEnv()

	body := SignupRequest{Username: "bob", Password: "password123"}
	require.Equal(t, http.StatusCreated, doRequest(t, env.router, http.MethodPost, "/api/users/signup", body, "").Code)

	w := doRequest(t, env.router, http.MethodPost, "/api/users/signup", body, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandler_ChangePassword(t *testing.T) {
	env := newUserTestEnv()

	user, err := env.service.Signup(context.Background(), service.SignupInput{Username: "carol", Password: "password123"})
	require.NoError(t, err)
	token := tokenForUser(t, user.ID)

	w := doRequest(t, env.router, http.MethodPut, "/api/users/password", ChangePasswordRequest{
		OldPassword:     "password123",
		NewPassword:     "newpassword1",
		ConfirmPassword: "different1",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, env.router, http.MethodPut, "/api/users/password", ChangePasswordRequest{
		OldPassword:     "not-my-password",
		NewPassword:     "newpassword1",
		ConfirmPassword: "newpassword1",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Details, "old_password")

	w = doRequest(t, env.router, http.MethodPut, "/api/users/password", ChangePasswordRequest{
		OldPassword:     "password123",
		NewPassword:     "newpassword1",
		ConfirmPassword: "newpassword1",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)

	_, _, _, err = env.service.Login(context.Background(), "carol", "newpassword1")
	assert.NoError(t, err)
}

func TestUserHandler_AddToGroupRequiresUsersManage(t *testing.T) {
	env := newUserTestEnv()

	user, err := env.service.Signup(context.Background(), service.SignupInput{Username: "dave", Password: "password123"})
	require.NoError(t, err)
	path := "/api/users/" + user.ID.String() + "/groups"
	body := AddToGroupRequest{Group: domain.GroupSalesperson}

	w := doRequest(t, env.router, http.MethodPost, path, body, tokenFor(t, domain.CapabilitySalesWrite))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.userRepo.users["dave"].InGroup(domain.GroupSalesperson))

	staff := tokenFor(t, domain.CapabilityUsersManage)

	w = doRequest(t, env.router, http.MethodPost, path, body, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.userRepo.users["dave"].InGroup(domain.GroupSalesperson))

	w = doRequest(t, env.router, http.MethodPost, path, AddToGroupRequest{Group: "Wizards"}, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, env.router, http.MethodPost, "/api/users/"+uuid.NewString()+"/groups", body, staff)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
