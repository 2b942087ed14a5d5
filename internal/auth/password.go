package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"household/internal/core"
	"household/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrEmailExists        = errors.New("email already registered")
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
)

// Authenticator registers accounts and exchanges credentials for tokens.
type Authenticator struct {
	users storage.Users
	jwt   *JWTManager
	now   func() time.Time
	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewAuthenticator(users storage.Users, jwt *JWTManager) *Authenticator {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("household-dummy-password"), bcrypt.DefaultCost)
	return &Authenticator{users: users, jwt: jwt, now: time.Now, dummyHash: dummy}
}

// Register creates an account with a bcrypt-hashed password.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (core.User, error) {
	user := core.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: a.now(),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}
	if len(password) < MinPasswordLength {
		return core.User{}, ErrWeakPassword
	}
	if len(password) > MaxPasswordLength {
		return core.User{}, ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return core.User{}, ErrEmailExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and returns a signed token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, storage.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.jwt.Generate(user)
}

// Verify resolves a bearer token to the caller's principal.
func (a *Authenticator) Verify(token string) (Principal, error) {
	claims, err := a.jwt.Validate(token)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: claims.UserID, Email: claims.Email}, nil
}
