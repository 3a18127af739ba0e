package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

type Service struct {
	Store    *Store
	secret   string
	tokenTTL time.Duration
}

func NewService(store *Store, secret string, tokenTTL time.Duration) *Service {
	return &Service{Store: store, secret: secret, tokenTTL: tokenTTL}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Operator  Operator  `json:"operator"`
}

// Login checks credentials and issues a signed session token. Unknown usernames and
// wrong passwords return the same error.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	op, err := s.Store.FindActiveByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, ErrOperatorNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := CheckPassword(op.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.secret, Claims{OperatorID: op.ID, Username: op.Username, Role: op.Role}, s.tokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, op.ID); err != nil {
		slog.Warn("last login update failed", "operatorId", op.ID, "err", err)
	}
	return LoginResult{Token: token, ExpiresAt: time.Now().Add(s.tokenTTL).UTC(), Operator: op}, nil
}

func (s *Service) ParseToken(token string) (*Claims, error) {
	return ParseToken(s.secret, token)
}

func (s *Service) Get(ctx context.Context, operatorID string) (Operator, error) {
	return s.Store.Get(ctx, operatorID)
}

func (s *Service) List(ctx context.Context) ([]Operator, error) {
	return s.Store.List(ctx)
}

func (s *Service) CreateOperator(ctx context.Context, username, displayName, password, role string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", errors.New("username is required")
	}
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	if !ValidRole(role) {
		return "", errors.New("unknown role " + role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	return s.Store.Create(ctx, Operator{
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
}

// EnsureAdmin creates the first admin operator on an empty install. It does nothing once
// any operator exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := s.Store.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		return false, errors.New("seed.admin_password is required to create the first operator")
	}
	if _, err := s.CreateOperator(ctx, username, "Administrator", password, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// HasPermission satisfies the router's permission check; roles are fixed in code.
func (s *Service) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return RoleHasPermission(role, permission), nil
}
