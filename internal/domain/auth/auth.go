package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin      = "admin"
	RoleHR         = "hr"
	RoleAccountant = "accountant"
	RoleViewer     = "viewer"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrUsernameTaken      = errors.New("username already taken")
)

type Claims struct {
	OperatorID string `json:"oid"`
	Username   string `json:"usr"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// UserContext is the authenticated operator carried on a request.
type UserContext struct {
	OperatorID string
	Username   string
	Role       string
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.OperatorID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
