package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"im-messenger/internal/config"
)

const issuer = "im-messenger"

var (
	// ErrInvalidToken 表示令牌无法解析、签名错误或已过期
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrIdentityMismatch 表示令牌中的用户与本地配置的用户不一致
	ErrIdentityMismatch = errors.New("identity token does not belong to the local user")
)

// Claims 是身份令牌中的自定义声明，嵌入了 jwt.RegisteredClaims。
type Claims struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	jwt.RegisteredClaims
}

// Identity 是经过确认的本地用户身份。
type Identity struct {
	UserID      string
	DisplayName string
}

// GenerateToken 为指定用户生成一个新的身份令牌。
func GenerateToken(userID, displayName, secret string, expiry time.Duration) (string, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("生成 JWT ID 失败: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        jwtID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("生成 JWT 失败: %w", err)
	}
	return tokenString, nil
}

// ValidateToken 验证令牌的签名、有效期和签发者，成功时返回 Claims。
func ValidateToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名算法: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ResolveIdentity 根据配置确定本地用户。配置了令牌时以令牌为准，
// 同时配置了 LOCAL_USER_ID 的话两者必须一致。
func ResolveIdentity(cfg config.IdentityConfig) (Identity, error) {
	id := Identity{UserID: cfg.LocalUserID, DisplayName: cfg.LocalDisplayName}
	if cfg.Token == "" {
		if id.UserID == "" {
			return Identity{}, fmt.Errorf("未配置本地用户 ID")
		}
		return id, nil
	}

	claims, err := ValidateToken(cfg.Token, cfg.TokenSecret)
	if err != nil {
		return Identity{}, err
	}
	if id.UserID != "" && id.UserID != claims.UserID {
		return Identity{}, fmt.Errorf("%w: token user %s, configured %s", ErrIdentityMismatch, claims.UserID, id.UserID)
	}
	id.UserID = claims.UserID
	if claims.DisplayName != "" {
		id.DisplayName = claims.DisplayName
	}
	return id, nil
}
