package utils

import (
	"errors"
	"fmt"
	"time"

	"club-space-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// JWTService JWT服务，签名密钥与托管认证服务一致，两边签发的 token 都能验证
type JWTService struct {
	secretKey []byte
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{secretKey: []byte(secretKey)}
}

func (j *JWTService) sign(userID, email, tokenType string, ttl time.Duration) (string, int64, error) {
	now := time.Now()
	expiry := now.Add(ttl)
	claims := &models.TokenClaims{
		Subject: userID,
		Email:   email,
		Role:    "authenticated",
		Type:    tokenType,
		Exp:     expiry.Unix(),
		Iat:     now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate %s token: %w", tokenType, err)
	}
	return signed, expiry.Unix(), nil
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (j *JWTService) GenerateTokenPair(userID, email string) (accessToken, refreshToken string, expiresAt int64, err error) {
	accessToken, expiresAt, err = j.sign(userID, email, "access", accessTokenTTL)
	if err != nil {
		return "", "", 0, err
	}
	refreshToken, _, err = j.sign(userID, email, "refresh", refreshTokenTTL)
	if err != nil {
		return "", "", 0, err
	}
	return accessToken, refreshToken, expiresAt, nil
}

// ValidateToken 验证令牌签名与有效期
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if time.Now().Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

// ValidateAccessToken 托管认证服务的 token 没有 type 字段，视为 access
func (j *JWTService) ValidateAccessToken(tokenString string) (*models.Session, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" && claims.Type != "access" {
		return nil, fmt.Errorf("invalid token type: %s", claims.Type)
	}
	return &models.Session{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// RefreshAccessToken 使用刷新令牌生成新的访问令牌
func (j *JWTService) RefreshAccessToken(refreshToken string) (string, int64, error) {
	claims, err := j.ValidateToken(refreshToken)
	if err != nil {
		return "", 0, fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.Type != "refresh" {
		return "", 0, fmt.Errorf("invalid token type: expected refresh, got %s", claims.Type)
	}
	return j.sign(claims.Subject, claims.Email, "access", accessTokenTTL)
}
