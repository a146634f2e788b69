package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/repository"
)

// Account validation limits.
const (
	minNameLength     = 2
	minPasswordLength = 8
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserStore is the persistence surface the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// ErrUserNotFound mirrors the store's not-found condition at the service
// boundary.
var ErrUserNotFound = errors.New("user not found")

// AccountService handles registration and login.
type AccountService struct {
	store UserStore
}

// NewAccountService creates a new AccountService.
func NewAccountService(store UserStore) *AccountService {
	return &AccountService{store: store}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register validates the input, hashes the password, and creates the user.
// Invalid input returns FieldErrors; a duplicate email surfaces as a field
// error on "email" rather than a server fault.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	fieldErrs := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if len(name) < minNameLength {
		fieldErrs.Add("name", "Name must be at least 2 characters")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !emailRegex.MatchString(email) {
		fieldErrs.Add("email", "Invalid email address")
	}

	if len(input.Password) < minPasswordLength {
		fieldErrs.Add("password", "Password must be at least 8 characters")
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, FieldErrors{"email": {"Email already in use"}}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// LoginInput defines input for authenticating an account.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies the credentials and returns the user. Unknown email and
// wrong password produce the same field error so the response does not
// reveal whether the account exists.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*model.User, error) {
	invalid := FieldErrors{"email": {"Invalid email or password"}}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, invalid
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !auth.VerifyPassword(input.Password, user.PasswordHash) {
		return nil, invalid
	}

	return user, nil
}

// GetUser retrieves a user by id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
