package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
)

// AuthService 负责用户注册、登录和令牌校验。
// 签发的 bearer token 是绑定 user_id 的 HS256 JWT。
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewAuthService 创建 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
	}, nil
}

// Register 处理用户注册。
func (s *AuthService) Register(ctx context.Context, username, password, nickname string) (*domain.User, error) {
	logCtx := logrus.WithField("username", username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if nickname == "" {
		nickname = username
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		UserID:   newUserID(),
		Username: username,
		Password: hashedPassword,
		Nickname: nickname,
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Registration failed: username already exists")
			return nil, ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.UserID).Info("User registered successfully")
	user.Password = ""
	return user, nil
}

// Login 处理用户登录，成功时返回 token 和用户信息。
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		// 对客户端统一返回认证失败，不泄露用户是否存在
		return "", nil, ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user.UserID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.UserID).Info("User logged in successfully")
	user.Password = ""
	return token, user, nil
}

// Authenticate 校验 WebSocket 握手携带的 user_id + token。
// token 无效、声明与 user_id 不符或用户不存在都视为认证失败。
func (s *AuthService) Authenticate(ctx context.Context, userID, tokenStr string) (*domain.User, error) {
	logCtx := logrus.WithField("user_id", userID)

	if userID == "" || tokenStr == "" {
		return nil, ErrAuthenticationFailed
	}

	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		logCtx.WithError(err).Warn("Handshake token validation failed")
		return nil, ErrAuthenticationFailed
	}
	claimID, _ := claims["user_id"].(string)
	if claimID != userID {
		logCtx.Warn("Handshake token does not match supplied user_id")
		return nil, ErrAuthenticationFailed
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Handshake rejected: unknown user")
			return nil, ErrAuthenticationFailed
		}
		logCtx.WithError(err).Error("Error loading user during handshake")
		return nil, ErrInternalServer
	}
	user.Password = ""
	return user, nil
}

// ValidateToken 解析并验证 JWT，返回其 claims。
func (s *AuthService) ValidateToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}

// --- 私有辅助函数 ---

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) generateJWT(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
