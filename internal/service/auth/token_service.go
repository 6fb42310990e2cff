// Package auth 校验网关签发的员工身份令牌
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
)

// Claims JWT 声明，字段名与网关保持一致
type Claims struct {
	EmployeeID uint   `json:"employeeId"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Identity 转换为调用方身份
func (c *Claims) Identity() model.Identity {
	return model.Identity{EmployeeID: c.EmployeeID, Email: c.Email, Role: c.Role}
}

type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService 创建令牌服务，密钥与网关共享
func NewTokenService(cfg config.SecurityConfig) *TokenService {
	cfg.SetDefaults()
	return &TokenService{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}
}

// GenerateToken 签发令牌，供联调和命令行使用
func (s *TokenService) GenerateToken(identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		EmployeeID: identity.EmployeeID,
		Email:      identity.Email,
		Role:       identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken 验证令牌签名、有效期和签发方
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的Token")
	}
	if claims.EmployeeID == 0 {
		return nil, fmt.Errorf("令牌缺少 employeeId")
	}
	return claims, nil
}
