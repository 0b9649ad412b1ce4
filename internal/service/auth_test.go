package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
	"github.com/baijianruoli/bot-chat/internal/repository/mocks"
)

const testSecret = "test-secret-key"

func newTestAuthService(t *testing.T, userRepo repository.UserRepository) *AuthService {
	t.Helper()
	svc, err := NewAuthService(userRepo, testSecret, 1)
	require.NoError(t, err)
	return svc
}

func TestNewAuthService_EmptySecret(t *testing.T) {
	_, err := NewAuthService(new(mocks.MockUserRepository), "", 1)
	assert.Error(t, err)
}

func TestRegister_Success(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	userRepo.On("Save", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "alice" && u.Nickname == "Alice" && u.UserID != "" && u.Password != "secret123"
	})).Return(nil)

	user, err := svc.Register(context.Background(), "alice", "secret123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password, "password must not leak out of the service")
	assert.True(t, len(user.UserID) > 2 && user.UserID[:2] == "u_")
	userRepo.AssertExpectations(t)
}

func TestRegister_DefaultsNicknameToUsername(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	userRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	user, err := svc.Register(context.Background(), "bob", "secret123", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Nickname)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	userRepo.On("Save", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEntry)

	_, err := svc.Register(context.Background(), "alice", "secret123", "")
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newTestAuthService(t, new(mocks.MockUserRepository))

	_, err := svc.Register(context.Background(), "", "secret123", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(context.Background(), "alice", "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin_Success(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	userRepo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID:   "u_11111111",
		Username: "alice",
		Password: string(hash),
	}, nil)

	token, user, err := svc.Login(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, user.Password)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u_11111111", claims["user_id"])
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	userRepo.On("FindByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID:   "u_11111111",
		Username: "alice",
		Password: string(hash),
	}, nil)

	_, _, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLogin_UnknownUserIsIndistinguishable(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	userRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, repository.ErrUserNotFound)

	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthenticate_Success(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := newTestAuthService(t, userRepo)

	token, err := svc.generateJWT("u_11111111")
	require.NoError(t, err)
	userRepo.On("FindByID", mock.Anything, "u_11111111").Return(&domain.User{
		UserID:   "u_11111111",
		Username: "alice",
		Password: "hash",
	}, nil)

	user, err := svc.Authenticate(context.Background(), "u_11111111", token)
	require.NoError(t, err)
	assert.Equal(t, "u_11111111", user.UserID)
	assert.Empty(t, user.Password)
}

func TestAuthenticate_TokenUserMismatch(t *testing.T) {
	svc := newTestAuthService(t, new(mocks.MockUserRepository))

	token, err := svc.generateJWT("u_11111111")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "u_22222222", token)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	svc := newTestAuthService(t, new(mocks.MockUserRepository))

	_, err := svc.Authenticate(context.Background(), "u_11111111", "not-a-jwt")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestAuthService(t, new(mocks.MockUserRepository))
	other, err := NewAuthService(new(mocks.MockUserRepository), "another-secret", 1)
	require.NoError(t, err)

	token, err := other.generateJWT("u_11111111")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
