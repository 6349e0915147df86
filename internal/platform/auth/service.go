package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists        = errors.New("already exists")
	ErrNotFound             = errors.New("not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotWhitelisted       = errors.New("email is not on the authorized list")
	ErrInvalidInput         = errors.New("email and password are required")
	ErrAuthzUnavailable     = errors.New("authorized email list is unavailable")
)

// Authorizer: 登録可否の判定（whitelist.Gate が満たす）
type Authorizer interface {
	IsAuthorized(ctx context.Context, email string) (bool, error)
}

type Service struct {
	store    AccountStore
	authz    Authorizer
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(store AccountStore, authz Authorizer, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		authz:    authz,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) error
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error
}

func (s *Service) Secret() []byte {
	return s.secret
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.IsDisabled {
		return "", ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthenticationFailed
	}
	return s.IssueToken(acct.Email)
}

// IssueToken signs an HS256 token carrying the email as both sub and email.
func (s *Service) IssueToken(email string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   email,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

// Register: ホワイトリストに載っているメールだけがアカウントを作れる
func (s *Service) Register(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return ErrInvalidInput
	}
	ok, err := s.authz.IsAuthorized(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthzUnavailable, err)
	}
	if !ok {
		return ErrNotWhitelisted
	}

	exists, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		Email:        email,
		PasswordHash: string(hash),
	})
}

func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	email = normalizeEmail(email)
	if newPassword == "" {
		return ErrInvalidInput
	}
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrAuthenticationFailed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	n, err := s.store.UpdatePassword(ctx, email, string(hash))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
