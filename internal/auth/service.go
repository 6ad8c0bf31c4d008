package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidRole  = errors.New("invalid role")
)

// Service — сервис авторизации: выдача и проверка JWT
type Service struct {
	config  *config.Config
	members storage.MembersStorage
}

func NewService(cfg *config.Config, members storage.MembersStorage) *Service {
	return &Service{
		config:  cfg,
		members: members,
	}
}

// ValidRole reports whether role is one of member, coach, admin.
func ValidRole(role string) bool {
	switch role {
	case storage.RoleMember, storage.RoleCoach, storage.RoleAdmin:
		return true
	}
	return false
}

// SignInDev — dev-авторизация по email: создаёт участника при первом входе и выдаёт JWT
func (s *Service) SignInDev(ctx context.Context, req *DevAuthRequest) (*DevAuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = storage.RoleMember
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}

	member := &storage.Member{
		Email: email,
		Name:  strings.TrimSpace(req.Name),
		Role:  role,
	}
	if err := s.members.UpsertMemberByEmail(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to upsert member: %w", err)
	}

	ttl := s.tokenTTL()
	accessToken, err := s.GenerateToken(member.ID, member.Role, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dev JWT: %w", err)
	}

	return &DevAuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		UserID:      member.ID,
		Role:        member.Role,
	}, nil
}

func (s *Service) tokenTTL() time.Duration {
	if s.config.JWTTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.config.JWTTTLMinutes) * time.Minute
}

// GenerateToken — генерация HS256 токена с ролью
func (s *Service) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyJWT — проверка подписи, issuer и срока действия
func (s *Service) VerifyJWT(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.JWTIssuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role == "" {
		claims.Role = storage.RoleMember
	}
	return claims, nil
}
